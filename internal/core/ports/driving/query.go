package driving

import (
	"context"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
)

// SearchResult pairs a ranked passage with its hydrated record.
type SearchResult struct {
	// Passage is the full passage record.
	Passage domain.Passage

	// Score is the relevance score from the query engine.
	Score float64

	// Signals lists the scoring signals that matched.
	Signals []string
}

// QueryService answers free-text queries over the indexed passage corpus.
type QueryService interface {
	// Search returns up to k passages ranked by the hybrid scorer,
	// with the confidence tier of the path that served them.
	Search(ctx context.Context, query string, k int) ([]SearchResult, domain.Confidence, error)

	// Ask retrieves context for the query and synthesizes an answer
	// constrained to that context, or an explicit refusal.
	Ask(ctx context.Context, query string, k int) (*domain.Answer, error)
}

// StatusService reports corpus and index state.
type StatusService interface {
	// Membership reports, per passage, which indexes contain it.
	Membership(ctx context.Context) ([]domain.IndexMembership, error)

	// Export produces the flat backup collection of passage records
	// plus index membership, keyed by passage ID.
	Export(ctx context.Context) ([]domain.ExportRecord, error)
}
