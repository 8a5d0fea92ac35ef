// Package app wires adapters and services into a running application.
// It is the composition root shared by the CLI and the MCP server.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	completionollama "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/completion/ollama"
	completionopenai "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/completion/openai"
	"github.com/clearwater-labs/quarry-cli/internal/adapters/driven/config/file"
	embeddingollama "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/embedding/ollama"
	embeddingopenai "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/embedding/openai"
	"github.com/clearwater-labs/quarry-cli/internal/adapters/driven/source/filesystem"
	"github.com/clearwater-labs/quarry-cli/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/clearwater-labs/quarry-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/clearwater-labs/quarry-cli/internal/chunking"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
	"github.com/clearwater-labs/quarry-cli/internal/core/services"
	"github.com/clearwater-labs/quarry-cli/internal/enrich"
	"github.com/clearwater-labs/quarry-cli/internal/index/lexical"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
	"github.com/clearwater-labs/quarry-cli/internal/retry"
)

// Options configures application construction.
type Options struct {
	// ConfigDir overrides the configuration directory (default ~/.quarry).
	ConfigDir string

	// SourceDir overrides the configured document source directory.
	SourceDir string
}

// App holds the wired services and the resources they own.
type App struct {
	Ingest driving.IngestService
	Query  driving.QueryService
	Status driving.StatusService

	Config  *file.ConfigStore
	Source  driven.WatchableSource
	Prompts driven.PromptStore

	store      *sqlite.Store
	completion driven.CompletionService
	embedding  driven.EmbeddingService
}

// New builds the application: loads configuration, opens storage,
// constructs providers, rebuilds the in-memory indexes from the stored
// corpus, and wires the services.
func New(opts Options) (*App, error) {
	cfg, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	prompts, err := file.NewPromptStore(promptDir(opts.ConfigDir))
	if err != nil {
		return nil, fmt.Errorf("open prompt store: %w", err)
	}

	sourceDir := opts.SourceDir
	if sourceDir == "" {
		sourceDir = cfg.GetString("source.dir")
	}
	if sourceDir == "" {
		sourceDir = "."
	}
	source, err := filesystem.New(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.dir"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	completion, err := buildCompletion(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	embedding, err := buildEmbedding(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	policy := buildRetryPolicy(cfg)
	lexicalIx := lexical.New()
	vectors := vectormemory.New()

	// The lexical index and vector store live in memory; rebuild both
	// from the persisted corpus so restarts keep retrieval working.
	if err := rebuildIndexes(store, lexicalIx, vectors); err != nil {
		store.Close()
		return nil, fmt.Errorf("rebuild indexes: %w", err)
	}

	chunker := chunking.New(buildChunkingConfig(cfg), completion, prompts, policy)
	enricher := enrich.New(completion, prompts, policy)
	indexer := services.NewIndexer(lexicalIx, vectors, embedding, policy, buildIndexerConfig(cfg))
	synthesizer := services.NewSynthesizer(completion, prompts, policy)

	minWords := cfg.GetInt("chunking.min_document_words")
	if minWords == 0 {
		minWords = chunking.DefaultConfig().MinDocumentWords
	}

	return &App{
		Ingest:     services.NewIngestService(source, chunker, enricher, indexer, store, minWords),
		Query:      services.NewQueryService(store, lexicalIx, vectors, embedding, synthesizer, buildWeights(cfg), nil),
		Status:     services.NewStatusService(store, lexicalIx, vectors),
		Config:     cfg,
		Source:     source,
		Prompts:    prompts,
		store:      store,
		completion: completion,
		embedding:  embedding,
	}, nil
}

// Close releases all resources the application owns.
func (a *App) Close() error {
	var firstErr error
	if a.completion != nil {
		if err := a.completion.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.embedding != nil {
		if err := a.embedding.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func promptDir(configDir string) string {
	if configDir == "" {
		return ""
	}
	return configDir + "/prompts"
}

// buildCompletion constructs the configured completion provider.
// Provider "none" disables completion; the pipeline then runs fully
// mechanical and every ask is a refusal.
func buildCompletion(cfg *file.ConfigStore) (driven.CompletionService, error) {
	switch provider := cfg.GetString("completion.provider"); provider {
	case "", "ollama":
		return completionollama.New(completionollama.Config{
			BaseURL: cfg.GetString("completion.base_url"),
			Model:   cfg.GetString("completion.model"),
		}), nil
	case "openai":
		return completionopenai.New(completionopenai.Config{
			APIKey:  apiKey(cfg, "completion.api_key"),
			BaseURL: cfg.GetString("completion.base_url"),
			Model:   cfg.GetString("completion.model"),
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", provider)
	}
}

// buildEmbedding constructs the configured embedding provider.
// Provider "none" disables the vector path; retrieval stays lexical.
func buildEmbedding(cfg *file.ConfigStore) (driven.EmbeddingService, error) {
	switch provider := cfg.GetString("embedding.provider"); provider {
	case "", "ollama":
		return embeddingollama.New(embeddingollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		}), nil
	case "openai":
		return embeddingopenai.New(embeddingopenai.Config{
			APIKey:     apiKey(cfg, "embedding.api_key"),
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// apiKey reads a key from config with OPENAI_API_KEY as the fallback.
func apiKey(cfg *file.ConfigStore, key string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return os.Getenv("OPENAI_API_KEY")
}

func buildRetryPolicy(cfg *file.ConfigStore) retry.Policy {
	policy := retry.DefaultPolicy()
	if v := cfg.GetInt("retry.max_attempts"); v > 0 {
		policy.MaxAttempts = v
	}
	if v := cfg.GetInt("retry.initial_backoff_ms"); v > 0 {
		policy.InitialBackoff = time.Duration(v) * time.Millisecond
	}
	return policy
}

func buildChunkingConfig(cfg *file.ConfigStore) chunking.Config {
	c := chunking.DefaultConfig()
	if v := cfg.GetInt("chunking.min_words"); v > 0 {
		c.MinWords = v
	}
	if v := cfg.GetInt("chunking.max_words"); v > 0 {
		c.MaxWords = v
	}
	if v := cfg.GetInt("chunking.target_words"); v > 0 {
		c.TargetWords = v
	}
	if v := cfg.GetInt("chunking.overlap_words"); v > 0 {
		c.OverlapWords = v
	}
	if v := cfg.GetInt("chunking.workers"); v > 0 {
		c.Workers = v
	}
	if v := cfg.GetInt("chunking.min_document_words"); v > 0 {
		c.MinDocumentWords = v
	}
	return c
}

// buildWeights overlays configured scoring weights on the defaults.
func buildWeights(cfg *file.ConfigStore) services.Weights {
	w := services.DefaultWeights()
	if v := cfg.GetFloat("scoring.exact_phrase"); v > 0 {
		w.ExactPhrase = v
	}
	if v := cfg.GetFloat("scoring.source"); v > 0 {
		w.Source = v
	}
	if v := cfg.GetFloat("scoring.category"); v > 0 {
		w.Category = v
	}
	if v := cfg.GetFloat("scoring.synonym"); v > 0 {
		w.Synonym = v
	}
	if v := cfg.GetFloat("scoring.synonym_cap"); v > 0 {
		w.SynonymCap = v
	}
	if v := cfg.GetFloat("scoring.term_factor"); v > 0 {
		w.TermFactor = v
	}
	if v := cfg.GetFloat("scoring.vector_fusion"); v > 0 && v <= 1 {
		w.VectorFusion = v
	}
	if v := cfg.GetFloat("scoring.min_vector_score"); v > 0 {
		w.MinVectorScore = v
	}
	if v := cfg.GetFloat("scoring.min_answer_score"); v > 0 {
		w.MinAnswerScore = v
	}
	return w
}

func buildIndexerConfig(cfg *file.ConfigStore) services.IndexerConfig {
	c := services.DefaultIndexerConfig()
	if v := cfg.GetInt("index.batch_size"); v > 0 {
		c.BatchSize = v
	}
	if v := cfg.GetInt("index.workers"); v > 0 {
		c.Workers = v
	}
	if v := cfg.GetFloat("index.requests_per_second"); v > 0 {
		c.RequestsPerSecond = v
	}
	return c
}

// rebuildIndexes repopulates the in-memory indexes from storage.
func rebuildIndexes(store *sqlite.Store, lexicalIx driven.LexicalIndex, vectors driven.VectorStore) error {
	ctx := context.Background()
	corpus, err := store.AllPassages(ctx)
	if err != nil {
		return err
	}

	var vectorCount int
	for i := range corpus {
		p := &corpus[i]
		lexicalIx.Add(p.ID, p.Text)
		if !p.HasEmbedding() {
			continue
		}
		record := driven.VectorRecord{PassageID: p.ID, SourceName: p.DocumentID}
		if p.Metadata.Category != nil {
			record.Category = *p.Metadata.Category
		}
		if err := vectors.Upsert(ctx, []driven.VectorRecord{record}, [][]float32{p.Embedding}); err != nil {
			return err
		}
		vectorCount++
	}

	if len(corpus) > 0 {
		logger.Debug("Rebuilt indexes: %d passages, %d with vectors", len(corpus), vectorCount)
	}
	return nil
}
