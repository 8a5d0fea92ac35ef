// Package lexical provides the inverted term index over passages.
// It is pure in-memory Go with no external dependency: the lexical path
// must stay fully sufficient on its own when embedding generation or the
// vector store degrade.
package lexical

import (
	"sort"
	"sync"

	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Index implements the port.
var _ driven.LexicalIndex = (*Index)(nil)

// Index maps normalised terms to (passage, frequency) postings. Updates
// are idempotent per passage: re-adding a passage replaces its postings.
// Writers hold passage-scoped exclusivity through the index lock; readers
// never block on ingestion beyond the brief map access.
type Index struct {
	mu sync.RWMutex

	// postings maps term -> passageID -> frequency.
	postings map[string]map[string]int

	// forward maps passageID -> term -> frequency, kept so a passage can
	// be removed or replaced without scanning every posting list.
	forward map[string]map[string]int
}

// New creates an empty lexical index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]int),
		forward:  make(map[string]map[string]int),
	}
}

// Add indexes a passage, replacing any previous postings for the same ID.
func (ix *Index) Add(passageID, text string) {
	freq := make(map[string]int)
	for _, term := range Tokenize(text) {
		freq[term]++
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(passageID)
	ix.forward[passageID] = freq
	for term, count := range freq {
		bucket, ok := ix.postings[term]
		if !ok {
			bucket = make(map[string]int)
			ix.postings[term] = bucket
		}
		bucket[passageID] = count
	}
}

// Remove deletes a passage's postings.
func (ix *Index) Remove(passageID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(passageID)
}

func (ix *Index) removeLocked(passageID string) {
	freq, ok := ix.forward[passageID]
	if !ok {
		return
	}
	for term := range freq {
		bucket := ix.postings[term]
		delete(bucket, passageID)
		if len(bucket) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.forward, passageID)
}

// Postings returns the hits for a normalised term, ordered by passage ID
// for reproducible iteration.
func (ix *Index) Postings(term string) []driven.TermHit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	bucket, ok := ix.postings[term]
	if !ok {
		return nil
	}
	hits := make([]driven.TermHit, 0, len(bucket))
	for id, count := range bucket {
		hits = append(hits, driven.TermHit{PassageID: id, Frequency: count})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].PassageID < hits[j].PassageID })
	return hits
}

// Frequency returns the term's occurrence count within one passage.
func (ix *Index) Frequency(passageID, term string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.forward[passageID][term]
}

// Contains reports whether the index holds the passage.
func (ix *Index) Contains(passageID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.forward[passageID]
	return ok
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.forward)
}
