// Package memory provides in-memory store implementations, used in tests
// and as lightweight defaults where persistence is not required.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure PassageStore implements the interface.
var _ driven.PassageStore = (*PassageStore)(nil)

// PassageStore is an in-memory passage store.
type PassageStore struct {
	mu       sync.RWMutex
	passages map[string]domain.Passage
}

// NewPassageStore creates an empty in-memory passage store.
func NewPassageStore() *PassageStore {
	return &PassageStore{
		passages: make(map[string]domain.Passage),
	}
}

// SavePassages stores or replaces passages.
func (s *PassageStore) SavePassages(ctx context.Context, passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range passages {
		s.passages[passages[i].ID] = passages[i]
	}
	return nil
}

// GetPassage retrieves a passage by ID.
func (s *PassageStore) GetPassage(ctx context.Context, id string) (*domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// PassagesByDocument retrieves all passages of a document in document order.
func (s *PassageStore) PassagesByDocument(ctx context.Context, documentID string) ([]domain.Passage, error) {
	s.mu.RLock()
	var passages []domain.Passage
	for _, p := range s.passages {
		if p.DocumentID == documentID {
			passages = append(passages, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(passages, func(i, j int) bool {
		return passages[i].Ordinal < passages[j].Ordinal
	})
	return passages, nil
}

// AllPassages retrieves the full corpus ordered by passage ID.
func (s *PassageStore) AllPassages(ctx context.Context) ([]domain.Passage, error) {
	s.mu.RLock()
	passages := make([]domain.Passage, 0, len(s.passages))
	for _, p := range s.passages {
		passages = append(passages, p)
	}
	s.mu.RUnlock()

	sort.Slice(passages, func(i, j int) bool {
		return passages[i].ID < passages[j].ID
	})
	return passages, nil
}

// DeleteByDocument removes all passages of a document.
func (s *PassageStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.passages {
		if p.DocumentID == documentID {
			delete(s.passages, id)
		}
	}
	return nil
}

// Close releases resources.
func (s *PassageStore) Close() error {
	return nil
}
