package domain

// Confidence identifies which retrieval path produced a result set.
// Callers never receive degraded results without this indicator.
type Confidence string

const (
	// ConfidenceVector means results are vector-backed (fused with lexical).
	ConfidenceVector Confidence = "vector"

	// ConfidenceLexical means results come from the lexical path alone.
	ConfidenceLexical Confidence = "lexical"

	// ConfidenceMetadata means results come from the metadata-only
	// last-resort path and are coarser, lower-confidence matches.
	ConfidenceMetadata Confidence = "metadata"
)

// Scoring signal names recorded on ranked passages.
const (
	SignalExactPhrase   = "exact-phrase"
	SignalSource        = "source"
	SignalCategory      = "category"
	SignalSynonym       = "synonym"
	SignalTermFrequency = "term-frequency"
	SignalVector        = "vector"
)

// RankedPassage is one entry of a query result list. Result lists are
// ephemeral: produced fresh per query, never persisted.
type RankedPassage struct {
	// PassageID identifies the matched passage.
	PassageID string

	// Score is the combined relevance score, higher is better.
	Score float64

	// Signals lists the scoring signals that matched this passage.
	Signals []string
}

// QueryResult is the full outcome of one query: the ranked list plus the
// confidence tier of the path that produced it.
type QueryResult struct {
	// Passages is the ranked list, highest score first, ties broken by
	// passage ID ascending.
	Passages []RankedPassage

	// Confidence tells which retrieval path served this result.
	Confidence Confidence
}

// Answer is the outcome of the answer synthesizer: either a grounded
// answer with citations or an explicit refusal.
type Answer struct {
	// Text is the answer body, or the refusal statement.
	Text string

	// CitedPassageIDs lists the passages the answer draws on.
	// Empty when Refused is true.
	CitedPassageIDs []string

	// Refused is true when the knowledge base lacked sufficient
	// information to answer.
	Refused bool

	// Confidence carries the retrieval tier the context came from.
	Confidence Confidence
}
