package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/enrich"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
	"github.com/clearwater-labs/quarry-cli/internal/retry"
)

// answerMaxTokens bounds the generated answer size.
const answerMaxTokens = 1000

// refuseMarker is the token the answer contract uses for refusals.
const refuseMarker = "REFUSE"

// sourcesPrefix introduces the citation line in generated answers.
const sourcesPrefix = "SOURCES:"

// refusalText holds the per-language refusal statements.
var refusalText = map[string]string{
	enrich.LanguageEnglish: "The knowledge base does not contain sufficient information to answer this question.",
	enrich.LanguageHebrew:  "מאגר הידע אינו מכיל מידע מספיק כדי לענות על שאלה זו.",
}

// Synthesizer produces answers constrained strictly to retrieved passages.
// The context-only cite-or-refuse contract lives in the prompt template and
// the response parser, both testable without any provider; generation
// itself is delegated to the completion service.
type Synthesizer struct {
	completion driven.CompletionService
	prompts    driven.PromptStore
	policy     retry.Policy
}

// NewSynthesizer creates an answer synthesizer. The completion service is
// optional; when nil or unreachable, every Ask outcome is a refusal.
func NewSynthesizer(completion driven.CompletionService, prompts driven.PromptStore, policy retry.Policy) *Synthesizer {
	return &Synthesizer{
		completion: completion,
		prompts:    prompts,
		policy:     policy,
	}
}

// Answer synthesizes a response from the supplied passages, or refuses.
// Refusal is mandatory when the passage list is empty or no passage
// matches the query's language; the answer language follows the query.
func (s *Synthesizer) Answer(
	ctx context.Context, query string, passages []domain.Passage, confidence domain.Confidence,
) (*domain.Answer, error) {
	queryLanguage := enrich.DetectLanguage(query)

	if len(passages) == 0 {
		logger.Info("No usable context, refusing")
		return refusal(queryLanguage, confidence), nil
	}

	// A query in a language with no matching-language passages gets a
	// refusal, never a mismatched-language answer.
	usable := filterByLanguage(passages, queryLanguage)
	if len(usable) == 0 {
		logger.Info("No %s-language context, refusing", queryLanguage)
		return refusal(queryLanguage, confidence), nil
	}

	if s.completion == nil {
		logger.Warn("Completion service not configured, refusing")
		return refusal(queryLanguage, confidence), nil
	}

	template, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		return nil, fmt.Errorf("load answer prompt: %w", err)
	}
	prompt := BuildAnswerPrompt(template, query, usable)

	var response string
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		response, callErr = s.completion.Complete(ctx, prompt, driven.CompleteOptions{
			MaxTokens:   answerMaxTokens,
			Temperature: 0,
		})
		return callErr
	})
	if err != nil {
		logger.Warn("Answer generation failed: %v (refusing)", err)
		return refusal(queryLanguage, confidence), nil
	}

	answer := ParseAnswer(response, usable, confidence)
	if answer.Refused {
		answer.Text = refusalText[normaliseLanguage(queryLanguage)]
	}
	return answer, nil
}

// BuildAnswerPrompt renders the cite-or-refuse contract: each passage is
// labelled with its ID, and the instructions forbid claims outside the
// supplied passages. Exported so the contract is testable independent of
// any provider.
func BuildAnswerPrompt(template, query string, passages []domain.Passage) string {
	var context strings.Builder
	for i := range passages {
		if i > 0 {
			context.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&context, "[%s]\n%s", passages[i].ID, passages[i].Text)
	}
	return fmt.Sprintf(template, context.String(), query, refuseMarker, sourcesPrefix)
}

// ParseAnswer applies the contract to a raw completion response: a refusal
// marker or a missing/empty citation line yields a refusal; cited IDs
// outside the supplied set are discarded. An answer with no valid citation
// left is downgraded to a refusal.
func ParseAnswer(response string, supplied []domain.Passage, confidence domain.Confidence) *domain.Answer {
	response = strings.TrimSpace(response)
	if response == "" || strings.HasPrefix(strings.ToUpper(response), refuseMarker) {
		return &domain.Answer{Refused: true, Confidence: confidence}
	}

	text := response
	var cited []string
	if idx := strings.LastIndex(response, sourcesPrefix); idx >= 0 {
		text = strings.TrimSpace(response[:idx])
		suppliedIDs := make(map[string]bool, len(supplied))
		for i := range supplied {
			suppliedIDs[supplied[i].ID] = true
		}
		for _, field := range strings.FieldsFunc(response[idx+len(sourcesPrefix):], func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '[' || r == ']'
		}) {
			if suppliedIDs[field] {
				cited = append(cited, field)
			}
		}
	}

	if len(cited) == 0 || text == "" {
		return &domain.Answer{Refused: true, Confidence: confidence}
	}
	return &domain.Answer{
		Text:            text,
		CitedPassageIDs: cited,
		Refused:         false,
		Confidence:      confidence,
	}
}

// filterByLanguage keeps passages matching the query language. Passages
// with unknown language are kept: absence means unknown, not mismatch.
func filterByLanguage(passages []domain.Passage, queryLanguage string) []domain.Passage {
	if queryLanguage == enrich.LanguageUnknown {
		return passages
	}
	var usable []domain.Passage
	for i := range passages {
		lang := passages[i].Metadata.Language
		if lang == queryLanguage || lang == "" || lang == enrich.LanguageUnknown {
			usable = append(usable, passages[i])
		}
	}
	return usable
}

func refusal(queryLanguage string, confidence domain.Confidence) *domain.Answer {
	return &domain.Answer{
		Text:       refusalText[normaliseLanguage(queryLanguage)],
		Refused:    true,
		Confidence: confidence,
	}
}

func normaliseLanguage(lang string) string {
	if _, ok := refusalText[lang]; ok {
		return lang
	}
	return enrich.LanguageEnglish
}
