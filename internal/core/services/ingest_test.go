package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagememory "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/storage/memory"
	vectormemory "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/clearwater-labs/quarry-cli/internal/chunking"
	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/enrich"
	"github.com/clearwater-labs/quarry-cli/internal/index/lexical"
)

// sentences builds n five-word sentences of plain English text.
func sentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "The number is sentence %d. ", i)
	}
	return strings.TrimSpace(b.String())
}

// ingestFixture wires the full pipeline over in-memory components.
type ingestFixture struct {
	store     *storagememory.PassageStore
	lexicalIx *lexical.Index
	vectors   *vectormemory.Store
	embedding *stubEmbedding
	service   *IngestService
}

func newIngestFixture(t *testing.T, docs []domain.RawDocument) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		store:     storagememory.NewPassageStore(),
		lexicalIx: lexical.New(),
		vectors:   vectormemory.New(),
		embedding: newStubEmbedding(),
	}

	chunker := chunking.New(chunking.Config{
		MinWords:    10,
		MaxWords:    20,
		TargetWords: 15,
		Workers:     1,
	}, nil, nil, onceOnlyPolicy())
	enricher := enrich.New(nil, &stubPrompts{}, onceOnlyPolicy())
	indexer := NewIndexer(f.lexicalIx, f.vectors, f.embedding, onceOnlyPolicy(), DefaultIndexerConfig())

	f.service = NewIngestService(&stubSource{docs: docs}, chunker, enricher, indexer, f.store, 10)
	return f
}

func TestIngestAll_Report(t *testing.T) {
	f := newIngestFixture(t, []domain.RawDocument{
		{ID: "small", Name: "Small", Text: sentences(3)},
		{ID: "large", Name: "Large", Text: sentences(10)},
	})

	report, err := f.service.IngestAll(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.BatchID)
	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.Equal(t, 4, report.PassagesCreated)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.VectorUnindexed)
	assert.Zero(t, report.RefinementFallbacks)

	assert.Equal(t, 10, report.WordCountMin)
	assert.Equal(t, 20, report.WordCountMax)
	assert.InDelta(t, 16.25, report.WordCountMean, 1e-9)
	assert.Equal(t, map[string]int{"en": 4}, report.LanguageDistribution)
	assert.Equal(t, map[string]int{"unknown": 4}, report.CategoryDistribution)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	all, err := f.store.AllPassages(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, f.lexicalIx.Len())
	assert.Equal(t, 4, f.vectors.Len())
}

func TestIngestAll_ShortDocumentSkippedInIsolation(t *testing.T) {
	f := newIngestFixture(t, []domain.RawDocument{
		{ID: "stub", Name: "Stub", Text: "Too short."},
		{ID: "real", Name: "Real", Text: sentences(3)},
	})

	report, err := f.service.IngestAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsProcessed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "stub", report.Skipped[0].DocumentID)
	assert.Contains(t, report.Skipped[0].Reason, "below the minimum")
}

func TestIngestAll_FlaggedPassagesReported(t *testing.T) {
	// Eleven plain words with no sentence structure: long enough to
	// ingest, but the single passage violates boundary rules.
	f := newIngestFixture(t, []domain.RawDocument{
		{ID: "raw", Name: "Raw", Text: "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda"},
	})

	report, err := f.service.IngestAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, []string{"raw:0000"}, report.FlaggedPassages)
}

func TestIngestDocument_ReplacesExistingPassages(t *testing.T) {
	doc := domain.RawDocument{ID: "doc", Name: "Doc", Text: sentences(10)}
	f := newIngestFixture(t, nil)

	_, err := f.service.IngestDocument(context.Background(), &doc)
	require.NoError(t, err)

	// Shrinking the document on re-ingest drops the stale passages.
	doc.Text = sentences(3)
	report, err := f.service.IngestDocument(context.Background(), &doc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PassagesCreated)

	all, err := f.store.AllPassages(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, f.lexicalIx.Len())
	assert.Equal(t, 1, f.vectors.Len())
}

func TestRemoveDocument(t *testing.T) {
	f := newIngestFixture(t, []domain.RawDocument{
		{ID: "keep", Name: "Keep", Text: sentences(3)},
		{ID: "drop", Name: "Drop", Text: sentences(3)},
	})

	_, err := f.service.IngestAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveDocument(context.Background(), "drop"))

	all, err := f.store.AllPassages(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "keep", all[0].DocumentID)
	assert.False(t, f.lexicalIx.Contains("drop:0000"))
	assert.True(t, f.lexicalIx.Contains("keep:0000"))

	// Removing an unknown document is a no-op.
	require.NoError(t, f.service.RemoveDocument(context.Background(), "never-seen"))
}

func TestIngestAll_SaveFailureRollsBackIndexes(t *testing.T) {
	f := newIngestFixture(t, []domain.RawDocument{
		{ID: "doc", Name: "Doc", Text: sentences(3)},
	})
	flaky := &flakyPassageStore{PassageStore: f.store, saveErr: errors.New("disk full")}
	f.service.passages = flaky

	report, err := f.service.IngestAll(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "disk full")
	assert.Zero(t, report.DocumentsProcessed)
	assert.Zero(t, f.lexicalIx.Len())
	assert.Zero(t, f.vectors.Len())
}

func TestIngestAll_CancelledContext(t *testing.T) {
	f := newIngestFixture(t, []domain.RawDocument{
		{ID: "doc", Name: "Doc", Text: sentences(3)},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.IngestAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
