package domain

import "strings"

// SectionHint marks a structural boundary in a raw document, produced by
// the out-of-scope normaliser (headings, slide or page breaks).
type SectionHint struct {
	// Offset is the byte offset of the section start within the text.
	Offset int

	// Heading is the heading or slide title, if any.
	Heading string
}

// RawDocument is one normalised source artifact as delivered by a
// DocumentSource: plain text plus lightweight structural hints.
// It is never mutated after normalisation.
type RawDocument struct {
	// ID is the unique document identifier.
	ID string

	// Name is the human-readable source name (usually the file name).
	Name string

	// Text is the full normalised plain text.
	Text string

	// Hints are structural boundaries, ordered by offset.
	Hints []SectionHint
}

// WordCount returns the number of whitespace-separated words in the text.
func (d *RawDocument) WordCount() int {
	return len(strings.Fields(d.Text))
}

// Sections splits the text along the structural hints. A document without
// hints yields a single section covering the whole text.
func (d *RawDocument) Sections() []Section {
	if len(d.Hints) == 0 {
		return []Section{{Text: d.Text}}
	}

	sections := make([]Section, 0, len(d.Hints)+1)
	if d.Hints[0].Offset > 0 {
		sections = append(sections, Section{Text: d.Text[:d.Hints[0].Offset]})
	}
	for i, h := range d.Hints {
		end := len(d.Text)
		if i+1 < len(d.Hints) {
			end = d.Hints[i+1].Offset
		}
		if h.Offset >= end || h.Offset < 0 || end > len(d.Text) {
			continue
		}
		sections = append(sections, Section{
			Heading: h.Heading,
			Text:    d.Text[h.Offset:end],
		})
	}
	return sections
}

// Section is one structurally delimited span of a raw document.
type Section struct {
	// Heading is the section heading, if the hint carried one.
	Heading string

	// Text is the section body, including the heading line.
	Text string
}

// WordCount returns the number of whitespace-separated words in the section.
func (s Section) WordCount() int {
	return len(strings.Fields(s.Text))
}
