package driving

import (
	"context"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

// IngestService runs the batch ingestion pipeline: chunk, enrich, index.
type IngestService interface {
	// IngestAll processes every document from the configured source.
	// Per-document failures are isolated and reported in the returned
	// report; they never abort the batch. Cancellation via ctx takes
	// effect between documents without corrupting committed passages.
	IngestAll(ctx context.Context) (*domain.IngestReport, error)

	// IngestDocument re-ingests a single document: its existing passages
	// are deleted by document ID, then recreated.
	IngestDocument(ctx context.Context, doc *domain.RawDocument) (*domain.IngestReport, error)
}
