package driven

// TermHit is one posting of the lexical index: a passage and the term's
// frequency within it.
type TermHit struct {
	// PassageID is the passage containing the term.
	PassageID string

	// Frequency is the number of occurrences of the term.
	Frequency int
}

// LexicalIndex is the inverted term index over passages. It has no external
// dependency and must be fully sufficient on its own: vector search is an
// enhancement, never the sole path.
type LexicalIndex interface {
	// Add indexes a passage. Re-adding the same passage replaces its
	// previous postings (idempotent per passage).
	Add(passageID, text string)

	// Remove deletes a passage's postings.
	Remove(passageID string)

	// Postings returns the hits for a normalised term.
	Postings(term string) []TermHit

	// Frequency returns a term's occurrence count within one passage.
	Frequency(passageID, term string) int

	// Contains reports whether the index holds the passage.
	Contains(passageID string) bool

	// Len returns the number of indexed passages.
	Len() int
}
