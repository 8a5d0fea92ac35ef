package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
	"github.com/clearwater-labs/quarry-cli/internal/retry"
)

// IndexerConfig tunes embedding throughput.
type IndexerConfig struct {
	// BatchSize is how many passages go into one embedding call.
	BatchSize int

	// Workers caps concurrent embedding batches.
	Workers int

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// DefaultIndexerConfig returns throughput settings suitable for a local
// embedding service.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		BatchSize:         16,
		Workers:           4,
		RequestsPerSecond: 0,
	}
}

func (c IndexerConfig) normalise() IndexerConfig {
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// IndexStats reports one indexing run.
type IndexStats struct {
	// LexicalIndexed counts passages added to the lexical index.
	LexicalIndexed int

	// VectorIndexed counts passages with a stored embedding.
	VectorIndexed int

	// VectorUnindexed lists passage IDs that remain lexical-only after
	// the embedding retries were exhausted.
	VectorUnindexed []string
}

// Indexer maintains the two retrieval indexes for a set of passages.
// Lexical indexing is local and never fails; vector indexing depends on
// the embedding service and degrades per passage rather than per run.
type Indexer struct {
	lexical   driven.LexicalIndex
	vectors   driven.VectorStore
	embedding driven.EmbeddingService
	policy    retry.Policy
	cfg       IndexerConfig
	limiter   *rate.Limiter
}

// NewIndexer creates a dual index builder. The embedding service and
// vector store are optional; without them every passage is lexical-only.
func NewIndexer(
	lexical driven.LexicalIndex,
	vectors driven.VectorStore,
	embedding driven.EmbeddingService,
	policy retry.Policy,
	cfg IndexerConfig,
) *Indexer {
	cfg = cfg.normalise()
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Indexer{
		lexical:   lexical,
		vectors:   vectors,
		embedding: embedding,
		policy:    policy,
		cfg:       cfg,
		limiter:   limiter,
	}
}

// Index adds the passages to both indexes. Lexical indexing always
// happens; vector indexing is attempted batch-first with per-passage
// fallback, and passages that still fail are recorded in the stats
// instead of failing the run. Embeddings are written back onto the
// passed slice so callers can persist them.
func (ix *Indexer) Index(ctx context.Context, passages []domain.Passage) (IndexStats, error) {
	var stats IndexStats

	for i := range passages {
		ix.lexical.Add(passages[i].ID, passages[i].Text)
		stats.LexicalIndexed++
	}

	if ix.embedding == nil || ix.vectors == nil {
		for i := range passages {
			stats.VectorUnindexed = append(stats.VectorUnindexed, passages[i].ID)
		}
		return stats, nil
	}

	if err := ix.embedAll(ctx, passages, &stats); err != nil {
		return stats, err
	}

	sort.Strings(stats.VectorUnindexed)
	return stats, nil
}

// Remove drops a document's passages from both indexes.
func (ix *Indexer) Remove(ctx context.Context, passages []domain.Passage) error {
	for i := range passages {
		ix.lexical.Remove(passages[i].ID)
	}
	if ix.vectors == nil {
		return nil
	}
	ids := make([]string, len(passages))
	for i := range passages {
		ids[i] = passages[i].ID
	}
	if err := ix.vectors.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// embedAll runs the embedding batches through a bounded worker pool.
// Each batch owns a disjoint slice of passages, so workers never write
// the same element. On cancellation the pool joins before returning, but
// every provider call is bound to ctx and returns as soon as it is
// cancelled, so the join does not wait out in-flight requests.
func (ix *Indexer) embedAll(ctx context.Context, passages []domain.Passage, stats *IndexStats) error {
	type batchResult struct {
		indexed   int
		unindexed []string
		err       error
	}

	var batches [][]domain.Passage
	for start := 0; start < len(passages); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batches = append(batches, passages[start:end])
	}

	results := make([]batchResult, len(batches))
	sem := make(chan struct{}, ix.cfg.Workers)
	var wg sync.WaitGroup

	for bi := range batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(bi int) {
			defer wg.Done()
			defer func() { <-sem }()
			indexed, unindexed, err := ix.embedBatch(ctx, batches[bi])
			results[bi] = batchResult{indexed: indexed, unindexed: unindexed, err: err}
		}(bi)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return r.err
		}
		stats.VectorIndexed += r.indexed
		stats.VectorUnindexed = append(stats.VectorUnindexed, r.unindexed...)
	}
	return nil
}

// embedBatch embeds one batch and upserts the results. A failed batch
// call falls back to embedding each passage individually, so one bad
// passage cannot sink its batchmates.
func (ix *Indexer) embedBatch(ctx context.Context, batch []domain.Passage) (int, []string, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}

	var embeddings [][]float32
	err := ix.policy.Do(ctx, func(ctx context.Context) error {
		if waitErr := ix.wait(ctx); waitErr != nil {
			return waitErr
		}
		var callErr error
		embeddings, callErr = ix.embedding.EmbedBatch(ctx, texts)
		return callErr
	})

	if err == nil && len(embeddings) == len(batch) {
		for i := range batch {
			batch[i].Embedding = embeddings[i]
		}
		if err := ix.upsert(ctx, batch); err != nil {
			return 0, nil, err
		}
		return len(batch), nil, nil
	}
	if ctx.Err() != nil {
		return 0, nil, ctx.Err()
	}
	logger.Warn("Batch embedding failed (%v), retrying passages individually", err)

	var indexed int
	var unindexed []string
	for i := range batch {
		vec, singleErr := ix.embedOne(ctx, batch[i].Text)
		if singleErr != nil {
			if ctx.Err() != nil {
				return indexed, unindexed, ctx.Err()
			}
			logger.Debug("Passage %s not vector indexed: %v", batch[i].ID, singleErr)
			unindexed = append(unindexed, batch[i].ID)
			continue
		}
		batch[i].Embedding = vec
		if err := ix.upsert(ctx, batch[i:i+1]); err != nil {
			return indexed, unindexed, err
		}
		indexed++
	}
	return indexed, unindexed, nil
}

func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := ix.policy.Do(ctx, func(ctx context.Context) error {
		if waitErr := ix.wait(ctx); waitErr != nil {
			return waitErr
		}
		var callErr error
		vec, callErr = ix.embedding.Embed(ctx, text)
		return callErr
	})
	return vec, err
}

func (ix *Indexer) upsert(ctx context.Context, passages []domain.Passage) error {
	records := make([]driven.VectorRecord, len(passages))
	vectors := make([][]float32, len(passages))
	for i := range passages {
		records[i] = driven.VectorRecord{
			PassageID:  passages[i].ID,
			SourceName: passages[i].DocumentID,
		}
		if passages[i].Metadata.Category != nil {
			records[i].Category = *passages[i].Metadata.Category
		}
		vectors[i] = passages[i].Embedding
	}
	if err := ix.vectors.Upsert(ctx, records, vectors); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

func (ix *Indexer) wait(ctx context.Context) error {
	if ix.limiter == nil {
		return nil
	}
	return ix.limiter.Wait(ctx)
}
