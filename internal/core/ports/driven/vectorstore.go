package driven

import "context"

// VectorRecord is the metadata stored alongside a vector, queryable on its
// own through the metadata-only fallback path.
type VectorRecord struct {
	// PassageID is the uniform join key shared with the lexical index.
	PassageID string

	// SourceName is the originating document's display name.
	SourceName string

	// Category is the passage's category label, empty when absent.
	Category string
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// PassageID is the matched passage.
	PassageID string

	// Score is the cosine similarity (0-1).
	Score float64
}

// VectorStore provides semantic similarity search over passage embeddings.
type VectorStore interface {
	// Upsert inserts or replaces vectors for a batch of passages.
	// Records and embeddings are matched by position.
	Upsert(ctx context.Context, records []VectorRecord, embeddings [][]float32) error

	// Delete removes the passages' vectors from the store.
	Delete(ctx context.Context, passageIDs []string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// QueryMetadata matches query terms against stored metadata alone.
	// This is the last-resort retrieval path, used when the passage
	// corpus is not locally available.
	QueryMetadata(ctx context.Context, terms []string, k int) ([]VectorHit, error)

	// Contains reports whether the store holds a vector for the passage.
	Contains(ctx context.Context, passageID string) (bool, error)

	// Close releases resources.
	Close() error
}
