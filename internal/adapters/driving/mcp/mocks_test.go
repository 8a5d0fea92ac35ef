package mcp

import (
	"context"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
)

// mockQueryService implements driving.QueryService for tests.
type mockQueryService struct {
	results    []driving.SearchResult
	confidence domain.Confidence
	answer     *domain.Answer
	err        error

	lastQuery string
	lastLimit int
}

func (m *mockQueryService) Search(ctx context.Context, query string, k int) ([]driving.SearchResult, domain.Confidence, error) {
	m.lastQuery = query
	m.lastLimit = k
	if m.err != nil {
		return nil, "", m.err
	}
	return m.results, m.confidence, nil
}

func (m *mockQueryService) Ask(ctx context.Context, query string, k int) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastLimit = k
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// mockStatusService implements driving.StatusService for tests.
type mockStatusService struct {
	memberships []domain.IndexMembership
	records     []domain.ExportRecord
	err         error
}

func (m *mockStatusService) Membership(ctx context.Context) ([]domain.IndexMembership, error) {
	return m.memberships, m.err
}

func (m *mockStatusService) Export(ctx context.Context) ([]domain.ExportRecord, error) {
	return m.records, m.err
}
