package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
	"github.com/clearwater-labs/quarry-cli/internal/index/lexical"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// defaultLimit bounds result counts when the caller passes k <= 0.
const defaultLimit = 5

// QueryService ranks passages for free-text queries through a tiered
// fallback chain: vector similarity fused with lexical scoring when the
// embedding path is reachable, lexical-only otherwise, and metadata-only
// as the last resort when the passage corpus itself is unavailable.
//
// Reads never block on ingestion writers: a query sees the committed
// corpus and may miss a passage still being indexed (eventual
// consistency, by contract).
type QueryService struct {
	passages    driven.PassageStore
	lexicalIx   driven.LexicalIndex
	vectorStore driven.VectorStore
	embedding   driven.EmbeddingService
	synthesizer *Synthesizer

	weights  Weights
	synonyms map[string][]string
}

// NewQueryService creates a query service. The vector store and embedding
// service are optional (can be nil); the lexical path carries the engine
// alone when they are absent.
func NewQueryService(
	passages driven.PassageStore,
	lexicalIx driven.LexicalIndex,
	vectorStore driven.VectorStore,
	embedding driven.EmbeddingService,
	synthesizer *Synthesizer,
	weights Weights,
	synonyms map[string][]string,
) *QueryService {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	return &QueryService{
		passages:    passages,
		lexicalIx:   lexicalIx,
		vectorStore: vectorStore,
		embedding:   embedding,
		synthesizer: synthesizer,
		weights:     weights,
		synonyms:    synonyms,
	}
}

// Search returns up to k ranked passages and the confidence tier of the
// path that produced them.
func (s *QueryService) Search(
	ctx context.Context, query string, k int,
) ([]driving.SearchResult, domain.Confidence, error) {
	result, err := s.rank(ctx, query, k)
	if err != nil {
		return nil, "", err
	}

	hydrated, err := s.hydrate(ctx, result.Passages, result.Confidence)
	if err != nil {
		return nil, "", fmt.Errorf("hydrate results: %w", err)
	}
	return hydrated, result.Confidence, nil
}

// rank runs the fallback chain and returns the raw ranked list.
func (s *QueryService) rank(ctx context.Context, query string, k int) (*domain.QueryResult, error) {
	logger.Section("Query Execution")
	query = strings.TrimSpace(query)
	logger.Debug("Query: %q", query)

	if k <= 0 {
		k = defaultLimit
	}
	if query == "" {
		return &domain.QueryResult{Confidence: domain.ConfidenceLexical}, nil
	}

	corpus, corpusErr := s.passages.AllPassages(ctx)
	if corpusErr != nil {
		logger.Warn("Passage corpus unavailable: %v", corpusErr)
		return s.metadataOnly(ctx, query, k, corpusErr)
	}

	lexicalRanked := scorePassages(corpus, query, s.lexicalIx, s.weights, s.synonyms)
	logger.Debug("Lexical path: %d scored passages", len(lexicalRanked))

	// Tier 1: vector similarity, fused with the lexical signal when the
	// embedding path yields a sufficient result set.
	if vectorRanked := s.vectorSearch(ctx, query, k); len(vectorRanked) > 0 {
		fused := s.fuse(vectorRanked, lexicalRanked)
		logger.Info("Serving vector-backed results (%d fused)", len(fused))
		return &domain.QueryResult{
			Passages:   truncate(fused, k),
			Confidence: domain.ConfidenceVector,
		}, nil
	}

	// Tier 2: the lexical path is always sufficient when non-empty.
	logger.Info("Serving lexical results (%d)", len(lexicalRanked))
	return &domain.QueryResult{
		Passages:   truncate(lexicalRanked, k),
		Confidence: domain.ConfidenceLexical,
	}, nil
}

// vectorSearch embeds the query and searches the vector store. Any failure
// disables the tier for this query: the fallback chain continues rather
// than surfacing an error. Hits below the sufficiency threshold are
// discarded.
func (s *QueryService) vectorSearch(ctx context.Context, query string, k int) []domain.RankedPassage {
	if s.vectorStore == nil || s.embedding == nil {
		return nil
	}

	embedding, err := s.embedding.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v (vector tier skipped)", err)
		return nil
	}
	hits, err := s.vectorStore.Search(ctx, embedding, k)
	if err != nil {
		logger.Warn("Vector search failed: %v (vector tier skipped)", err)
		return nil
	}

	ranked := make([]domain.RankedPassage, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < s.weights.MinVectorScore {
			continue
		}
		ranked = append(ranked, domain.RankedPassage{
			PassageID: hit.PassageID,
			Score:     hit.Score,
			Signals:   []string{domain.SignalVector},
		})
	}
	return ranked
}

// fuse merges vector and lexical rankings with a weighted sum of the
// cosine similarity and the max-normalised lexical score. Deterministic:
// ties break by passage ID ascending.
func (s *QueryService) fuse(vectorRanked, lexicalRanked []domain.RankedPassage) []domain.RankedPassage {
	var maxLexical float64
	lexicalByID := make(map[string]domain.RankedPassage, len(lexicalRanked))
	for _, r := range lexicalRanked {
		lexicalByID[r.PassageID] = r
		if r.Score > maxLexical {
			maxLexical = r.Score
		}
	}

	w := s.weights.VectorFusion
	fused := make(map[string]domain.RankedPassage)
	for _, v := range vectorRanked {
		entry := domain.RankedPassage{
			PassageID: v.PassageID,
			Score:     w * v.Score,
			Signals:   []string{domain.SignalVector},
		}
		if lex, ok := lexicalByID[v.PassageID]; ok && maxLexical > 0 {
			entry.Score += (1 - w) * (lex.Score / maxLexical)
			entry.Signals = append(entry.Signals, lex.Signals...)
		}
		fused[v.PassageID] = entry
	}
	for _, lex := range lexicalByID {
		if _, ok := fused[lex.PassageID]; ok || maxLexical == 0 {
			continue
		}
		fused[lex.PassageID] = domain.RankedPassage{
			PassageID: lex.PassageID,
			Score:     (1 - w) * (lex.Score / maxLexical),
			Signals:   lex.Signals,
		}
	}

	out := make([]domain.RankedPassage, 0, len(fused))
	for _, r := range fused {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PassageID < out[j].PassageID
	})
	return out
}

// metadataOnly is the last-resort tier: query terms matched against the
// vector store's metadata alone, used only when the passage corpus is not
// locally available. When this tier also fails, the caller receives an
// explicit retrieval-unavailable signal.
func (s *QueryService) metadataOnly(
	ctx context.Context, query string, k int, corpusErr error,
) (*domain.QueryResult, error) {
	if s.vectorStore == nil {
		return nil, fmt.Errorf("%w: corpus: %v", domain.ErrRetrievalUnavailable, corpusErr)
	}

	terms := lexical.Tokenize(query)
	hits, err := s.vectorStore.QueryMetadata(ctx, terms, k)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata path: %v", domain.ErrRetrievalUnavailable, err)
	}

	ranked := make([]domain.RankedPassage, 0, len(hits))
	for _, hit := range hits {
		ranked = append(ranked, domain.RankedPassage{
			PassageID: hit.PassageID,
			Score:     hit.Score,
			Signals:   []string{domain.SignalCategory},
		})
	}
	logger.Info("Serving metadata-only results (%d, lower confidence)", len(ranked))
	return &domain.QueryResult{
		Passages:   truncate(ranked, k),
		Confidence: domain.ConfidenceMetadata,
	}, nil
}

// hydrate resolves ranked IDs to full passage records. Passages deleted
// since ranking are skipped, not errors. Metadata-confidence results were
// ranked precisely because the passage store is unavailable, so for that
// tier a store failure yields an ID-and-score result instead of an error.
func (s *QueryService) hydrate(
	ctx context.Context, ranked []domain.RankedPassage, confidence domain.Confidence,
) ([]driving.SearchResult, error) {
	results := make([]driving.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		p, err := s.passages.GetPassage(ctx, r.PassageID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if confidence == domain.ConfidenceMetadata {
				logger.Warn("Passage %s unavailable: %v (serving id only)", r.PassageID, err)
				results = append(results, driving.SearchResult{
					Passage: domain.Passage{ID: r.PassageID},
					Score:   r.Score,
					Signals: r.Signals,
				})
				continue
			}
			return nil, fmt.Errorf("get passage %s: %w", r.PassageID, err)
		}
		results = append(results, driving.SearchResult{
			Passage: *p,
			Score:   r.Score,
			Signals: r.Signals,
		})
	}
	return results, nil
}

// Ask retrieves context for the query and synthesizes a context-bound
// answer or an explicit refusal.
func (s *QueryService) Ask(ctx context.Context, query string, k int) (*domain.Answer, error) {
	result, err := s.rank(ctx, query, k)
	if err != nil {
		return nil, err
	}

	hydrated, err := s.hydrate(ctx, result.Passages, result.Confidence)
	if err != nil {
		return nil, fmt.Errorf("hydrate context: %w", err)
	}

	passages := make([]domain.Passage, 0, len(hydrated))
	for _, h := range hydrated {
		// ID-only results carry no text and cannot support a citation.
		if h.Score < s.weights.MinAnswerScore || h.Passage.Text == "" {
			continue
		}
		passages = append(passages, h.Passage)
	}

	return s.synthesizer.Answer(ctx, query, passages, result.Confidence)
}

// truncate bounds a ranked list to k entries.
func truncate(ranked []domain.RankedPassage, k int) []domain.RankedPassage {
	if len(ranked) > k {
		return ranked[:k]
	}
	return ranked
}
