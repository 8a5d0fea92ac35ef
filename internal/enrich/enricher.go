// Package enrich derives passage metadata: category and keyword tags via
// the completion service, plus language detection that works offline.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
	"github.com/clearwater-labs/quarry-cli/internal/retry"
)

// classifyMaxTokens bounds the classification response size.
const classifyMaxTokens = 300

// Enricher annotates passages with metadata. Enrichment is idempotent:
// re-running on an unchanged passage overwrites the same fields with the
// same values given the same service responses.
type Enricher struct {
	completion driven.CompletionService
	prompts    driven.PromptStore
	policy     retry.Policy
}

// New creates an enricher. The completion service is optional; when nil,
// category, framework and keywords stay absent and only the offline
// fields (language, counts) are populated.
func New(completion driven.CompletionService, prompts driven.PromptStore, policy retry.Policy) *Enricher {
	return &Enricher{
		completion: completion,
		prompts:    prompts,
		policy:     policy,
	}
}

// classification is the JSON shape requested from the completion service.
type classification struct {
	Framework string   `json:"framework"`
	Category  string   `json:"category"`
	Keywords  []string `json:"keywords"`
}

// Enrich populates the passage's metadata in place. The offline fields
// are always set. Classification failure leaves category, framework and
// keywords absent rather than defaulting to a guessed value: callers must
// treat absence as unknown.
func (e *Enricher) Enrich(ctx context.Context, p *domain.Passage) error {
	p.Metadata.Language = DetectLanguage(p.Text)
	p.Metadata.WordCount = len(strings.Fields(p.Text))
	p.Metadata.CharCount = len(p.Text)

	if e.completion == nil {
		return nil
	}

	template, err := e.prompts.Load(driven.PromptClassify)
	if err != nil {
		return fmt.Errorf("load classify prompt: %w", err)
	}
	prompt := fmt.Sprintf(template, strings.Join(domain.Categories, " | "), p.Text)

	var response string
	err = e.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		response, callErr = e.completion.Complete(ctx, prompt, driven.CompleteOptions{
			MaxTokens:   classifyMaxTokens,
			Temperature: 0,
		})
		return callErr
	})
	if err != nil {
		logger.Warn("Classification failed for %s: %v (fields stay absent)", p.ID, err)
		return nil
	}

	result, err := parseClassification(response)
	if err != nil {
		logger.Warn("Unparseable classification for %s: %v", p.ID, err)
		return nil
	}

	if result.Framework != "" {
		p.Metadata.Framework = &result.Framework
	}
	if domain.ValidCategory(result.Category) {
		p.Metadata.Category = &result.Category
	} else if result.Category != "" {
		logger.Debug("Discarding out-of-set category %q for %s", result.Category, p.ID)
	}
	if len(result.Keywords) > 0 {
		p.Metadata.Keywords = result.Keywords
	}
	return nil
}

// parseClassification extracts the JSON object from a completion response,
// tolerating surrounding prose.
func parseClassification(response string) (*classification, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response: %w", domain.ErrInvalidInput)
	}

	var result classification
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	return &result, nil
}
