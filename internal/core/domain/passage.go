package domain

import (
	"fmt"
	"sort"
)

// Quality flag names recorded by the chunker's validation rules.
// Flags mark rule violations; flagged passages are reported, never discarded.
const (
	FlagTooShort         = "too-short"
	FlagTooLong          = "too-long"
	FlagEmpty            = "empty"
	FlagOpensMidSentence = "opens-mid-sentence"
	FlagEndsMidSentence  = "ends-mid-sentence"
	FlagMissingMetadata  = "missing-metadata"
)

// PassageMetadata holds the closed set of typed tags attached to a passage.
// Optional fields use pointers so "absent" is distinguishable from a zero
// value; absence means unknown, not a category of its own.
type PassageMetadata struct {
	// Framework is the primary framework or concept the passage explains.
	Framework *string

	// Category classifies the passage into one of the closed category labels.
	Category *string

	// Section names the specific section within the source document.
	Section *string

	// Keywords is the free-form keyword list extracted during enrichment.
	Keywords []string

	// Language is the detected language code ("en", "he", ...).
	Language string

	// WordCount is the number of words in the passage body.
	WordCount int

	// CharCount is the number of bytes in the passage body.
	CharCount int
}

// Complete reports whether the enrichment-provided fields are all present.
func (m PassageMetadata) Complete() bool {
	return m.Framework != nil && m.Category != nil && len(m.Keywords) > 0 && m.Language != ""
}

// Passage is the atomic retrievable unit derived from a document.
// A passage is created once by the chunker, enriched in place, indexed,
// and immutable thereafter except for index membership.
type Passage struct {
	// ID is the stable unique identifier, assigned at creation.
	// IDs encode document-internal ordering: "<docID>:<ordinal>".
	ID string

	// DocumentID links to the originating document.
	DocumentID string

	// Ordinal is the position within the originating document.
	Ordinal int

	// Text is the passage body.
	Text string

	// Metadata holds the typed tag set produced by enrichment.
	Metadata PassageMetadata

	// Embedding is the vector representation, present only after the
	// vector index path succeeds. Nil is a valid, detectable state.
	Embedding []float32

	// QualityFlags lists the validation rules this passage violates.
	// Empty means fully compliant.
	QualityFlags []string
}

// PassageID builds the stable identifier for a passage of a document.
// Ordinals are zero-padded so lexicographic order matches document order.
func PassageID(docID string, ordinal int) string {
	return fmt.Sprintf("%s:%04d", docID, ordinal)
}

// Flag records a quality rule violation, keeping the flag set deduplicated
// and sorted for deterministic reporting.
func (p *Passage) Flag(name string) {
	for _, f := range p.QualityFlags {
		if f == name {
			return
		}
	}
	p.QualityFlags = append(p.QualityFlags, name)
	sort.Strings(p.QualityFlags)
}

// Flagged reports whether the named quality flag is set.
func (p *Passage) Flagged(name string) bool {
	for _, f := range p.QualityFlags {
		if f == name {
			return true
		}
	}
	return false
}

// HasEmbedding reports whether the vector path has indexed this passage.
func (p *Passage) HasEmbedding() bool {
	return len(p.Embedding) > 0
}
