// Package memory provides an in-process vector store with brute-force
// cosine search. It suits corpora in the thousands of passages; larger
// deployments should swap in a dedicated vector database behind the same
// port.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type entry struct {
	record driven.VectorRecord
	vector []float32
	norm   float64
}

// Store holds vectors and their metadata in memory.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty vector store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
	}
}

// Upsert stores or replaces vectors. Records and vectors are matched by
// position and must have equal length.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("got %d records for %d vectors", len(records), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		s.entries[records[i].PassageID] = entry{
			record: records[i],
			vector: vec,
			norm:   norm(vec),
		}
	}
	return nil
}

// Delete removes the given passage IDs. Missing IDs are ignored.
func (s *Store) Delete(ctx context.Context, passageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range passageIDs {
		delete(s.entries, id)
	}
	return nil
}

// Search returns the k nearest entries by cosine similarity, ordered by
// score descending with passage ID as the tiebreak.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	qnorm := norm(vector)
	if qnorm == 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(s.entries))
	for id, e := range s.entries {
		if e.norm == 0 || len(e.vector) != len(vector) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			PassageID: id,
			Score:     dot(vector, e.vector) / (qnorm * e.norm),
		})
	}
	s.mu.RUnlock()

	sortHits(hits)
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// QueryMetadata matches query terms against stored source names and
// category labels only. It is the last-resort retrieval path when both
// the lexical index and vector search are unusable; scores count matched
// terms.
func (s *Store) QueryMetadata(ctx context.Context, terms []string, k int) ([]driven.VectorHit, error) {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	var hits []driven.VectorHit
	for id, e := range s.entries {
		source := strings.ToLower(e.record.SourceName)
		category := strings.ToLower(e.record.Category)
		var matched int
		for _, term := range lowered {
			if strings.Contains(source, term) || strings.Contains(category, term) {
				matched++
			}
		}
		if matched > 0 {
			hits = append(hits, driven.VectorHit{PassageID: id, Score: float64(matched)})
		}
	}
	s.mu.RUnlock()

	sortHits(hits)
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Contains reports whether the store holds a vector for the passage.
func (s *Store) Contains(ctx context.Context, passageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[passageID]
	return ok, nil
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func sortHits(hits []driven.VectorHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PassageID < hits[j].PassageID
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
