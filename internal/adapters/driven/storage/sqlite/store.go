package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/clearwater-labs/quarry-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.PassageStore = (*Store)(nil)

// Store is a SQLite-backed passage store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.quarry/data/passages.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".quarry", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "passages.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

const passageColumns = `id, document_id, ordinal, text, framework, category, section,
	keywords, language, word_count, char_count, embedding, quality_flags`

// SavePassages stores or replaces passages in a single transaction.
func (s *Store) SavePassages(ctx context.Context, passages []domain.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (`+passageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			ordinal = excluded.ordinal,
			text = excluded.text,
			framework = excluded.framework,
			category = excluded.category,
			section = excluded.section,
			keywords = excluded.keywords,
			language = excluded.language,
			word_count = excluded.word_count,
			char_count = excluded.char_count,
			embedding = excluded.embedding,
			quality_flags = excluded.quality_flags
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range passages {
		p := &passages[i]

		keywordsJSON, err := json.Marshal(p.Metadata.Keywords)
		if err != nil {
			return fmt.Errorf("marshalling keywords: %w", err)
		}
		flagsJSON, err := json.Marshal(p.QualityFlags)
		if err != nil {
			return fmt.Errorf("marshalling quality flags: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			p.ID, p.DocumentID, p.Ordinal, p.Text,
			nullString(p.Metadata.Framework), nullString(p.Metadata.Category), nullString(p.Metadata.Section),
			string(keywordsJSON), p.Metadata.Language, p.Metadata.WordCount, p.Metadata.CharCount,
			float32SliceToBytes(p.Embedding), string(flagsJSON)); err != nil {
			return fmt.Errorf("saving passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetPassage retrieves a passage by ID.
func (s *Store) GetPassage(ctx context.Context, id string) (*domain.Passage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+passageColumns+` FROM passages WHERE id = ?
	`, id)

	p, err := scanPassage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// PassagesByDocument retrieves all passages of a document in document order.
func (s *Store) PassagesByDocument(ctx context.Context, documentID string) ([]domain.Passage, error) {
	return s.query(ctx, `
		SELECT `+passageColumns+` FROM passages
		WHERE document_id = ? ORDER BY ordinal
	`, documentID)
}

// AllPassages retrieves the full corpus ordered by passage ID.
func (s *Store) AllPassages(ctx context.Context) ([]domain.Passage, error) {
	return s.query(ctx, `
		SELECT `+passageColumns+` FROM passages ORDER BY id
	`)
}

// DeleteByDocument removes all passages of a document.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM passages WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting passages: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Passage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanPassage(rows.Scan)
		if err != nil {
			return nil, err
		}
		passages = append(passages, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}

	return passages, nil
}

// scanPassage decodes one passage row via the given scan function, so a
// single decoder serves both *sql.Row and *sql.Rows.
func scanPassage(scan func(...any) error) (*domain.Passage, error) {
	var p domain.Passage
	var framework, category, section sql.NullString
	var keywordsJSON, flagsJSON sql.NullString
	var embeddingBlob []byte

	if err := scan(&p.ID, &p.DocumentID, &p.Ordinal, &p.Text,
		&framework, &category, &section,
		&keywordsJSON, &p.Metadata.Language, &p.Metadata.WordCount, &p.Metadata.CharCount,
		&embeddingBlob, &flagsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning passage: %w", err)
	}

	if framework.Valid {
		p.Metadata.Framework = &framework.String
	}
	if category.Valid {
		p.Metadata.Category = &category.String
	}
	if section.Valid {
		p.Metadata.Section = &section.String
	}
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &p.Metadata.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshaling keywords: %w", err)
		}
	}
	if flagsJSON.Valid && flagsJSON.String != "" {
		if err := json.Unmarshal([]byte(flagsJSON.String), &p.QualityFlags); err != nil {
			return nil, fmt.Errorf("unmarshaling quality flags: %w", err)
		}
	}
	p.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &p, nil
}

// nullString converts a *string to a sql-storable value, keeping absence
// as NULL rather than an empty string.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
