// Package chunking converts normalised document text into an ordered
// sequence of quality-validated passages. Boundaries are proposed from
// structural hints first, with a size-driven splitter for oversize
// sections; a completion-service refinement pass may adjust boundaries,
// falling back to the mechanical split deterministically when refinement
// is unavailable.
package chunking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
	"github.com/clearwater-labs/quarry-cli/internal/retry"
)

// refineMaxTokens bounds the refinement response; the reply is one number.
const refineMaxTokens = 16

// Stats reports what happened while chunking one document.
type Stats struct {
	// RefinementFallbacks counts boundaries that used the mechanical cut
	// after refinement retries were exhausted.
	RefinementFallbacks int
}

// Chunker produces passages from raw documents.
type Chunker struct {
	cfg        Config
	completion driven.CompletionService
	prompts    driven.PromptStore
	policy     retry.Policy
}

// New creates a chunker. The completion service is optional: when nil,
// every boundary uses the mechanical split and no refinement calls are
// made. The pipeline never fails outright due to refinement availability.
func New(cfg Config, completion driven.CompletionService, prompts driven.PromptStore, policy retry.Policy) *Chunker {
	return &Chunker{
		cfg:        cfg.normalise(),
		completion: completion,
		prompts:    prompts,
		policy:     policy,
	}
}

// sectionWork is one structural section prepared for boundary assembly.
type sectionWork struct {
	heading   string
	words     []string
	proposals []span
	// hints maps proposal index -> refined cut (word count from the
	// proposal start). Missing entries mean mechanical fallback.
	hints map[int]int
}

// Chunk splits the document into ordered passages covering the entire
// input with no gaps. A single boundary's refinement failure is isolated:
// it never aborts sibling chunks or the document.
func (c *Chunker) Chunk(ctx context.Context, doc *domain.RawDocument) ([]domain.Passage, Stats, error) {
	var stats Stats
	if doc == nil {
		return nil, stats, domain.ErrInvalidInput
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, stats, nil
	}

	sections := make([]*sectionWork, 0, 4)
	for _, sec := range doc.Sections() {
		words := strings.Fields(sec.Text)
		if len(words) == 0 {
			continue
		}
		sections = append(sections, &sectionWork{
			heading:   sec.Heading,
			words:     words,
			proposals: proposeSpans(words, c.cfg),
			hints:     make(map[int]int),
		})
	}

	// Refinement is concurrent across boundaries: proposals are fixed
	// before any call, so no chunk depends on another's refined text.
	if c.completion != nil {
		stats.RefinementFallbacks = c.refineBoundaries(ctx, sections)
	}

	passages := c.assemble(doc, sections)
	for i := range passages {
		c.validate(&passages[i])
	}
	return passages, stats, nil
}

// refineJob identifies one adjustable boundary.
type refineJob struct {
	section  *sectionWork
	proposal int
}

// refineBoundaries runs the refinement pass over every adjustable boundary
// with a bounded worker pool. Returns the number of fallbacks. The pool
// joins before returning even when ctx is cancelled; completion calls are
// ctx-bound and fail fast on cancellation, so the join never waits out an
// in-flight request.
func (c *Chunker) refineBoundaries(ctx context.Context, sections []*sectionWork) int {
	template, err := c.prompts.Load(driven.PromptRefineChunk)
	if err != nil {
		logger.Warn("Refinement prompt unavailable: %v (mechanical split for all boundaries)", err)
		return countAdjustable(sections)
	}

	var jobs []refineJob
	for _, sec := range sections {
		// The final span of a section ends where the section ends;
		// only interior boundaries are adjustable.
		for i := 0; i < len(sec.proposals)-1; i++ {
			jobs = append(jobs, refineJob{section: sec, proposal: i})
		}
	}
	if len(jobs) == 0 {
		return 0
	}

	var (
		mu        sync.Mutex
		fallbacks int
		wg        sync.WaitGroup
	)
	sem := make(chan struct{}, c.cfg.Workers)

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job refineJob) {
			defer wg.Done()
			defer func() { <-sem }()

			cut, err := c.refineOne(ctx, template, job)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Debug("Refinement fallback for boundary %d: %v", job.proposal, err)
				fallbacks++
				return
			}
			job.section.hints[job.proposal] = cut
		}(job)
	}
	wg.Wait()
	return fallbacks
}

// refineOne asks the completion service where one chunk should end. The
// window handed to the model spans from the proposal start to the maximum
// allowed cut, and the reply is the preferred word count.
func (c *Chunker) refineOne(ctx context.Context, template string, job refineJob) (int, error) {
	p := job.section.proposals[job.proposal]
	hi := p.start + c.cfg.MaxWords
	if hi > len(job.section.words) {
		hi = len(job.section.words)
	}
	window := strings.Join(job.section.words[p.start:hi], " ")
	prompt := fmt.Sprintf(template, c.cfg.MinWords, c.cfg.MaxWords, window)

	var response string
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		response, callErr = c.completion.Complete(ctx, prompt, driven.CompleteOptions{
			MaxTokens:   refineMaxTokens,
			Temperature: 0,
		})
		return callErr
	})
	if err != nil {
		return 0, err
	}

	cut, err := parseCut(response)
	if err != nil {
		return 0, err
	}
	if cut < c.cfg.MinWords || cut > c.cfg.MaxWords {
		return 0, fmt.Errorf("cut %d outside band: %w", cut, domain.ErrInvalidInput)
	}
	return cut, nil
}

// parseCut extracts the first integer from a completion response.
func parseCut(response string) (int, error) {
	for _, field := range strings.Fields(response) {
		trimmed := strings.Trim(field, ".,:;")
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no number in refinement response: %w", domain.ErrInvalidInput)
}

// assemble walks each section's words in order, applying refinement hints
// where they still fit the band and the mechanical cut otherwise. Passage
// IDs are assigned by document ordinal, so ordering is preserved
// regardless of refinement completion order.
func (c *Chunker) assemble(doc *domain.RawDocument, sections []*sectionWork) []domain.Passage {
	var passages []domain.Passage
	ordinal := 0

	for _, sec := range sections {
		start := 0
		proposal := 0
		var prevEnd []string

		for start < len(sec.words) {
			end := c.nextCut(sec, start, proposal)

			text := strings.Join(sec.words[start:end], " ")
			if len(prevEnd) > 0 {
				text = strings.Join(prevEnd, " ") + " " + text
			}

			p := domain.Passage{
				ID:         domain.PassageID(doc.ID, ordinal),
				DocumentID: doc.ID,
				Ordinal:    ordinal,
				Text:       text,
			}
			section := sec.heading
			if section == "" && len(sec.proposals) > 1 {
				section = fmt.Sprintf("%s - Part %d", doc.Name, proposal+1)
			}
			if section != "" {
				p.Metadata.Section = &section
			}
			passages = append(passages, p)
			ordinal++

			if c.cfg.OverlapWords > 0 && end < len(sec.words) {
				lo := end - c.cfg.OverlapWords
				if lo < start {
					lo = start
				}
				prevEnd = sec.words[lo:end]
			} else {
				prevEnd = nil
			}
			start = end
			proposal++
		}
	}
	return passages
}

// nextCut picks where the chunk starting at start ends: a refinement hint
// when one exists and still lands inside the band, the mechanical
// sentence-aware cut otherwise. A hint is trusted only while the chunk
// still starts where the refined window started: once a cut shifts, later
// hints were computed against text the refinement call never saw, so the
// mechanical cut takes over for the rest of the section.
func (c *Chunker) nextCut(sec *sectionWork, start, proposal int) int {
	remaining := len(sec.words) - start
	if remaining <= c.cfg.MaxWords {
		return len(sec.words)
	}

	if hint, ok := sec.hints[proposal]; ok &&
		proposal < len(sec.proposals) && sec.proposals[proposal].start == start {
		end := start + hint
		if hint >= c.cfg.MinWords && hint <= c.cfg.MaxWords && end < len(sec.words) {
			return end
		}
	}

	end := start + c.cfg.TargetWords
	if cut := lastSentenceCut(sec.words, start+c.cfg.MinWords, start+c.cfg.MaxWords); cut > start {
		end = cut
	}
	return end
}

// countAdjustable counts interior boundaries across all sections.
func countAdjustable(sections []*sectionWork) int {
	n := 0
	for _, sec := range sections {
		if len(sec.proposals) > 1 {
			n += len(sec.proposals) - 1
		}
	}
	return n
}

// validate applies the quality rules. Violations are recorded as flags and
// are never fatal: passages are reported, not discarded.
func (c *Chunker) validate(p *domain.Passage) {
	words := strings.Fields(p.Text)

	if len(words) == 0 {
		p.Flag(domain.FlagEmpty)
		return
	}
	if len(words) < c.cfg.MinWords {
		p.Flag(domain.FlagTooShort)
	}
	if len(words) > c.cfg.MaxWords+c.cfg.OverlapWords {
		p.Flag(domain.FlagTooLong)
	}

	first := words[0]
	if r := []rune(first); len(r) > 0 && r[0] >= 'a' && r[0] <= 'z' {
		p.Flag(domain.FlagOpensMidSentence)
	}
	if !sentenceEnd(words[len(words)-1]) {
		p.Flag(domain.FlagEndsMidSentence)
	}
}
