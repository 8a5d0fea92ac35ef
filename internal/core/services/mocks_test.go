package services

import (
	"context"
	"sync"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/retry"
)

// stubCompletion returns a fixed response or error.
type stubCompletion struct {
	response string
	err      error
}

func (s *stubCompletion) Complete(ctx context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	return s.response, s.err
}

func (s *stubCompletion) ModelName() string { return "stub" }

func (s *stubCompletion) Ping(ctx context.Context) error { return nil }

func (s *stubCompletion) Close() error { return nil }

// stubPrompts resolves templates from a map.
type stubPrompts struct {
	templates map[string]string
}

func (s *stubPrompts) Load(name string) (string, error) {
	return s.templates[name], nil
}

func answerPrompts() *stubPrompts {
	return &stubPrompts{templates: map[string]string{
		driven.PromptAnswer: "context: %s\nquestion: %s\nmarker: %s\nprefix: %s",
	}}
}

// stubEmbedding serves canned vectors, with optional per-call failures.
type stubEmbedding struct {
	mu          sync.Mutex
	fallback    []float32
	vectors     map[string][]float32
	batchErr    error
	failTexts   map[string]bool
	batchCalls  int
	singleCalls int
}

func newStubEmbedding() *stubEmbedding {
	return &stubEmbedding{fallback: []float32{1, 0}}
}

func (s *stubEmbedding) vectorFor(text string) []float32 {
	if v, ok := s.vectors[text]; ok {
		return v
	}
	return s.fallback
}

func (s *stubEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.singleCalls++
	s.mu.Unlock()
	if s.failTexts[text] {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return s.vectorFor(text), nil
}

func (s *stubEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.batchCalls++
	s.mu.Unlock()
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if s.failTexts[text] {
			return nil, domain.ErrEmbeddingUnavailable
		}
		out[i] = s.vectorFor(text)
	}
	return out, nil
}

func (s *stubEmbedding) Dimensions() int { return len(s.fallback) }

func (s *stubEmbedding) ModelName() string { return "stub-embed" }

func (s *stubEmbedding) Ping(ctx context.Context) error { return nil }

func (s *stubEmbedding) Close() error { return nil }

// stubSource hands out a fixed document list.
type stubSource struct {
	docs []domain.RawDocument
	err  error
}

func (s *stubSource) Documents(ctx context.Context) ([]domain.RawDocument, error) {
	return s.docs, s.err
}

// flakyPassageStore injects failures in front of a working store.
type flakyPassageStore struct {
	driven.PassageStore
	allErr  error
	getErr  error
	saveErr error
}

func (s *flakyPassageStore) AllPassages(ctx context.Context) ([]domain.Passage, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	return s.PassageStore.AllPassages(ctx)
}

func (s *flakyPassageStore) GetPassage(ctx context.Context, id string) (*domain.Passage, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.PassageStore.GetPassage(ctx, id)
}

func (s *flakyPassageStore) SavePassages(ctx context.Context, passages []domain.Passage) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.PassageStore.SavePassages(ctx, passages)
}

func onceOnlyPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 1}
}

func strPtr(s string) *string { return &s }
