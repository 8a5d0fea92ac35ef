package services

import (
	"context"
	"fmt"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
)

var _ driving.StatusService = (*StatusService)(nil)

// StatusService reports corpus state and produces the flat export.
type StatusService struct {
	passages driven.PassageStore
	lexical  driven.LexicalIndex
	vectors  driven.VectorStore
}

// NewStatusService creates a status reporter over the stores and indexes.
func NewStatusService(passages driven.PassageStore, lexical driven.LexicalIndex, vectors driven.VectorStore) *StatusService {
	return &StatusService{
		passages: passages,
		lexical:  lexical,
		vectors:  vectors,
	}
}

// Membership reports, per passage, which indexes currently contain it.
// Ordering follows passage ID ascending.
func (s *StatusService) Membership(ctx context.Context) ([]domain.IndexMembership, error) {
	corpus, err := s.passages.AllPassages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}

	memberships := make([]domain.IndexMembership, 0, len(corpus))
	for i := range corpus {
		m := domain.IndexMembership{
			PassageID: corpus[i].ID,
			Lexical:   s.lexical.Contains(corpus[i].ID),
		}
		if s.vectors != nil {
			m.Vector, err = s.vectors.Contains(ctx, corpus[i].ID)
			if err != nil {
				return nil, fmt.Errorf("check vector membership for %s: %w", corpus[i].ID, err)
			}
		}
		memberships = append(memberships, m)
	}
	return memberships, nil
}

// Export produces the flat backup collection: every passage record with
// its text, metadata, quality flags and index membership, keyed by
// passage ID. Ordering follows passage ID ascending.
func (s *StatusService) Export(ctx context.Context) ([]domain.ExportRecord, error) {
	corpus, err := s.passages.AllPassages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}

	records := make([]domain.ExportRecord, 0, len(corpus))
	for i := range corpus {
		record := domain.ExportRecord{
			Passage: corpus[i],
			Membership: domain.IndexMembership{
				PassageID: corpus[i].ID,
				Lexical:   s.lexical.Contains(corpus[i].ID),
			},
		}
		if s.vectors != nil {
			record.Membership.Vector, err = s.vectors.Contains(ctx, corpus[i].ID)
			if err != nil {
				return nil, fmt.Errorf("check vector membership for %s: %w", corpus[i].ID, err)
			}
		}
		records = append(records, record)
	}
	return records, nil
}
