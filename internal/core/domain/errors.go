package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates a document could not be read or normalised.
	// The document is skipped and reported; the batch continues.
	ErrExtraction = errors.New("extraction failed")

	// ErrCompletionUnavailable indicates the completion service is not
	// configured or unreachable. Chunk refinement falls back to the
	// mechanical split; enrichment fields stay absent; answers refuse.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service failed.
	// Affected passages are marked vector-unindexed; the lexical path
	// still works.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is unreachable.
	// Queries fall through to the lexical path.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrIndexCorrupt indicates an index is inconsistent with the passage
	// store. Fatal for the affected index only: rebuild from the passage
	// store rather than serving inconsistent results.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrRetrievalUnavailable indicates every level of the retrieval
	// fallback chain failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrInsufficientContext is not a failure: it is the defined refusal
	// outcome when retrieved passages cannot support an answer.
	ErrInsufficientContext = errors.New("insufficient context")
)
