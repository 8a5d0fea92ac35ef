package driven

import (
	"context"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

// PassageStore persists passages. Passages are retired only by full
// re-ingestion of their source document: DeleteByDocument, then recreate.
type PassageStore interface {
	// SavePassages stores or replaces passages. The write is atomic per
	// passage: a query never observes a partially written passage.
	SavePassages(ctx context.Context, passages []domain.Passage) error

	// GetPassage retrieves a passage by ID.
	GetPassage(ctx context.Context, id string) (*domain.Passage, error)

	// PassagesByDocument returns a document's passages in ordinal order.
	PassagesByDocument(ctx context.Context, docID string) ([]domain.Passage, error)

	// AllPassages returns every stored passage, ordered by ID.
	AllPassages(ctx context.Context) ([]domain.Passage, error)

	// DeleteByDocument removes a document's passages (cascade delete).
	DeleteByDocument(ctx context.Context, docID string) error

	// Close releases resources.
	Close() error
}
