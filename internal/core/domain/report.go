package domain

import "time"

// SkippedDocument records one document the ingestion batch could not process.
type SkippedDocument struct {
	// DocumentID identifies the skipped document.
	DocumentID string

	// Name is the document's display name.
	Name string

	// Reason is the human-readable skip reason.
	Reason string
}

// IngestReport summarises one ingestion batch. Per-document and per-chunk
// failures are isolated and collected here; they never abort the batch.
type IngestReport struct {
	// BatchID uniquely identifies this ingestion run in logs and output.
	BatchID string

	// StartedAt is when the batch began.
	StartedAt time.Time

	// FinishedAt is when the batch completed or was cancelled.
	FinishedAt time.Time

	// DocumentsProcessed counts documents successfully ingested.
	DocumentsProcessed int

	// PassagesCreated counts passages created across all documents.
	PassagesCreated int

	// Skipped lists documents that could not be processed.
	Skipped []SkippedDocument

	// FlaggedPassages lists IDs of passages carrying quality flags.
	FlaggedPassages []string

	// VectorUnindexed lists IDs of passages whose embedding failed and
	// which are therefore only reachable through the lexical path.
	VectorUnindexed []string

	// RefinementFallbacks counts chunks that fell back to the mechanical
	// split after refinement retries were exhausted.
	RefinementFallbacks int

	// WordCountMin, WordCountMax and WordCountMean describe the passage
	// size distribution of the batch.
	WordCountMin  int
	WordCountMax  int
	WordCountMean float64

	// LanguageDistribution counts passages per detected language.
	LanguageDistribution map[string]int

	// CategoryDistribution counts passages per category label; passages
	// with an absent category are counted under "unknown".
	CategoryDistribution map[string]int
}

// IndexMembership reports, per passage, which indexes currently contain it.
type IndexMembership struct {
	// PassageID identifies the passage.
	PassageID string

	// Lexical is true when the lexical index contains the passage.
	Lexical bool

	// Vector is true when the vector store contains the passage.
	Vector bool
}

// ExportRecord is one entry of the flat backup collection: a passage record
// plus its index membership, keyed uniformly by passage ID.
type ExportRecord struct {
	Passage    Passage
	Membership IndexMembership
}
