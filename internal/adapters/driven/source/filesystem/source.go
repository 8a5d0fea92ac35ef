// Package filesystem provides a document source backed by a local
// directory of plain text and markdown files.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
)

// Ensure Source implements the interfaces.
var (
	_ driven.DocumentSource  = (*Source)(nil)
	_ driven.WatchableSource = (*Source)(nil)
)

// debounceWindow coalesces editor save bursts into one change event.
const debounceWindow = 200 * time.Millisecond

// supported file extensions.
var supportedExts = map[string]bool{
	".txt": true,
	".md":  true,
}

// Source reads documents from a directory tree of .txt and .md files.
type Source struct {
	root string
}

// New creates a filesystem source rooted at the given directory.
func New(root string) (*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", root)
	}
	return &Source{root: root}, nil
}

// Documents walks the tree and returns one normalised document per
// supported file, ordered by path. Unreadable files are skipped with a
// warning.
func (s *Source) Documents(ctx context.Context) ([]domain.RawDocument, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	sort.Strings(paths)

	docs := make([]domain.RawDocument, 0, len(paths))
	for _, path := range paths {
		doc, err := s.read(path)
		if err != nil {
			logger.Warn("Skipping unreadable file %s: %v", path, err)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Watch emits a re-read document whenever a supported file under the
// root changes. The channel closes when ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan domain.RawDocument, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch every directory in the tree; fsnotify does not recurse.
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.root, err)
	}

	out := make(chan domain.RawDocument)
	go s.watchLoop(ctx, watcher, out)
	return out, nil
}

func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.RawDocument) {
	defer close(out)
	defer watcher.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			if !supportedExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(debounceWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			for path := range pending {
				doc, err := s.read(path)
				if err != nil {
					logger.Warn("Skipping changed file %s: %v", path, err)
					continue
				}
				select {
				case out <- *doc:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]struct{})
		}
	}
}

// read loads and normalises one file.
func (s *Source) read(path string) (*domain.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := normalise(string(data))
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	doc := &domain.RawDocument{
		ID:   docID(rel),
		Name: filepath.Base(path),
		Text: text,
	}
	if strings.ToLower(filepath.Ext(path)) == ".md" {
		doc.Hints = headingHints(text)
	}
	return doc, nil
}

// normalise converts line endings and trims trailing whitespace so
// downstream offsets are stable across platforms.
func normalise(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// docID derives a stable document identifier from the relative path:
// lowercased, extension stripped, path separators and spaces collapsed
// to dashes.
func docID(rel string) string {
	id := strings.TrimSuffix(rel, filepath.Ext(rel))
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, string(filepath.Separator), "-")
	id = strings.ReplaceAll(id, " ", "-")
	return id
}

// headingHints extracts markdown heading boundaries with byte offsets.
func headingHints(text string) []domain.SectionHint {
	var hints []domain.SectionHint
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			hints = append(hints, domain.SectionHint{
				Offset:  offset,
				Heading: heading,
			})
		}
		offset += len(line)
	}
	return hints
}
