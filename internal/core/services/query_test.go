package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagememory "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/storage/memory"
	vectormemory "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/index/lexical"
)

// queryFixture wires a query service over in-memory components.
type queryFixture struct {
	passages  *storagememory.PassageStore
	lexicalIx *lexical.Index
	vectors   *vectormemory.Store
	embedding *stubEmbedding
}

func newQueryFixture(t *testing.T, corpus []domain.Passage) *queryFixture {
	t.Helper()
	f := &queryFixture{
		passages:  storagememory.NewPassageStore(),
		lexicalIx: lexical.New(),
		vectors:   vectormemory.New(),
		embedding: newStubEmbedding(),
	}
	ctx := context.Background()
	require.NoError(t, f.passages.SavePassages(ctx, corpus))
	for i := range corpus {
		f.lexicalIx.Add(corpus[i].ID, corpus[i].Text)
		if corpus[i].HasEmbedding() {
			require.NoError(t, f.vectors.Upsert(ctx,
				[]driven.VectorRecord{{PassageID: corpus[i].ID, SourceName: corpus[i].DocumentID}},
				[][]float32{corpus[i].Embedding}))
		}
	}
	return f
}

func (f *queryFixture) service(synth *Synthesizer) *QueryService {
	return NewQueryService(f.passages, f.lexicalIx, f.vectors, f.embedding, synth, DefaultWeights(), map[string][]string{})
}

func feedbackCorpus() []domain.Passage {
	return []domain.Passage{
		{
			ID:         "guide:0000",
			DocumentID: "guide",
			Text:       "Feedback works best when it is specific and timely.",
			Metadata:   domain.PassageMetadata{Language: "en"},
			Embedding:  []float32{1, 0},
		},
		{
			ID:         "guide:0001",
			DocumentID: "guide",
			Text:       "Delegation transfers authority while keeping accountability.",
			Metadata:   domain.PassageMetadata{Language: "en"},
			Embedding:  []float32{0, 1},
		},
	}
}

func TestSearch_VectorTier(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	f.embedding.fallback = []float32{1, 0}
	svc := f.service(nil)

	results, confidence, err := svc.Search(context.Background(), "specific feedback", 5)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceVector, confidence)
	require.NotEmpty(t, results)
	assert.Equal(t, "guide:0000", results[0].Passage.ID)
	assert.Contains(t, results[0].Signals, domain.SignalVector)
}

func TestSearch_EmbeddingFailureFallsBackToLexical(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	f.embedding.failTexts = map[string]bool{"feedback timely": true}
	svc := f.service(nil)

	results, confidence, err := svc.Search(context.Background(), "feedback timely", 5)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceLexical, confidence)
	require.NotEmpty(t, results)
	assert.Equal(t, "guide:0000", results[0].Passage.ID)
}

func TestSearch_NoVectorComponentsUsesLexical(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	svc := NewQueryService(f.passages, f.lexicalIx, nil, nil, nil, DefaultWeights(), map[string][]string{})

	results, confidence, err := svc.Search(context.Background(), "delegation authority", 5)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceLexical, confidence)
	require.NotEmpty(t, results)
	assert.Equal(t, "guide:0001", results[0].Passage.ID)
}

func TestSearch_MetadataOnlyWhenCorpusUnavailable(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	storeErr := errors.New("connection refused")
	flaky := &flakyPassageStore{PassageStore: f.passages, allErr: storeErr, getErr: storeErr}
	svc := NewQueryService(flaky, f.lexicalIx, f.vectors, f.embedding, nil, DefaultWeights(), map[string][]string{})

	results, confidence, err := svc.Search(context.Background(), "guide", 5)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceMetadata, confidence)
	require.NotEmpty(t, results)
	for _, r := range results {
		// A full store outage still serves ranked IDs and scores.
		assert.NotEmpty(t, r.Passage.ID)
		assert.Empty(t, r.Passage.Text)
		assert.Greater(t, r.Score, 0.0)
		assert.Equal(t, []string{domain.SignalCategory}, r.Signals)
	}
}

func TestAsk_RefusesWhenCorpusUnavailable(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	storeErr := errors.New("connection refused")
	flaky := &flakyPassageStore{PassageStore: f.passages, allErr: storeErr, getErr: storeErr}
	completion := &stubCompletion{response: "Should never be called.\nSOURCES: [guide:0000]"}
	synth := NewSynthesizer(completion, answerPrompts(), onceOnlyPolicy())
	svc := NewQueryService(flaky, f.lexicalIx, f.vectors, f.embedding, synth, DefaultWeights(), map[string][]string{})

	answer, err := svc.Ask(context.Background(), "guide", 5)
	require.NoError(t, err)

	// ID-only context carries no citable text, so the answer refuses.
	assert.True(t, answer.Refused)
	assert.Empty(t, answer.CitedPassageIDs)
}

func TestSearch_RetrievalUnavailable(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	flaky := &flakyPassageStore{PassageStore: f.passages, allErr: errors.New("corpus offline")}
	svc := NewQueryService(flaky, f.lexicalIx, nil, nil, nil, DefaultWeights(), map[string][]string{})

	_, _, err := svc.Search(context.Background(), "guide", 5)
	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	svc := f.service(nil)

	results, confidence, err := svc.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, domain.ConfidenceLexical, confidence)
}

func TestSearch_LimitApplied(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	svc := f.service(nil)

	results, _, err := svc.Search(context.Background(), "guide", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_Deterministic(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	svc := f.service(nil)

	first, confidence, err := svc.Search(context.Background(), "feedback delegation", 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, c, err := svc.Search(context.Background(), "feedback delegation", 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, confidence, c)
	}
}

func TestAsk_RefusesWithoutCompletion(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	synth := NewSynthesizer(nil, answerPrompts(), onceOnlyPolicy())
	svc := f.service(synth)

	answer, err := svc.Ask(context.Background(), "how should feedback be delivered", 5)
	require.NoError(t, err)
	assert.True(t, answer.Refused)
	assert.Empty(t, answer.CitedPassageIDs)
	assert.NotEmpty(t, answer.Text)
}

func TestAsk_AnswersWithCitations(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	completion := &stubCompletion{response: "Be specific and timely.\nSOURCES: [guide:0000]"}
	synth := NewSynthesizer(completion, answerPrompts(), onceOnlyPolicy())
	svc := f.service(synth)

	answer, err := svc.Ask(context.Background(), "how should feedback be delivered", 5)
	require.NoError(t, err)

	assert.False(t, answer.Refused)
	assert.Equal(t, "Be specific and timely.", answer.Text)
	assert.Equal(t, []string{"guide:0000"}, answer.CitedPassageIDs)
	assert.Equal(t, domain.ConfidenceVector, answer.Confidence)
}

func TestAsk_RefusesOnNoMatches(t *testing.T) {
	f := newQueryFixture(t, feedbackCorpus())
	f.embedding.failTexts = map[string]bool{"quantum chromodynamics": true}
	completion := &stubCompletion{response: "Should never be called.\nSOURCES: [guide:0000]"}
	synth := NewSynthesizer(completion, answerPrompts(), onceOnlyPolicy())
	svc := f.service(synth)

	answer, err := svc.Ask(context.Background(), "quantum chromodynamics", 5)
	require.NoError(t, err)
	assert.True(t, answer.Refused)
}
