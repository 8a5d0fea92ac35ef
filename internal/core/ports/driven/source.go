package driven

import (
	"context"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

// DocumentSource delivers normalised documents for ingestion. Raw text
// extraction from specific file containers is outside the core; a source
// hands the core plain text plus structural hints.
type DocumentSource interface {
	// Documents returns the ordered document collection. Unreadable
	// documents are skipped with a warning, not by failing the whole
	// listing.
	Documents(ctx context.Context) ([]domain.RawDocument, error)
}

// WatchableSource is a DocumentSource that can report changed documents.
type WatchableSource interface {
	DocumentSource

	// Watch emits a document each time its underlying content changes.
	// The channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocument, error)
}
