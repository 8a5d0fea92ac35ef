package services

import (
	"sort"
	"strings"

	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/index/lexical"
)

// Weights holds the lexical scoring constants. They are policy choices
// tuned empirically, exposed as configuration; tests assert ranking order,
// never exact score values.
type Weights struct {
	// ExactPhrase is added when the full query appears verbatim.
	ExactPhrase float64

	// Source is added per query term matching the source document name.
	Source float64

	// Category is added per query term matching the category or
	// framework tags.
	Category float64

	// Synonym is added per domain-synonym hit.
	Synonym float64

	// SynonymCap bounds the total synonym contribution so expansion
	// cannot dominate exact matches.
	SynonymCap float64

	// TermFactor scales term-frequency scoring: count x length x factor.
	TermFactor float64

	// VectorFusion is the vector share of the weighted sum when vector
	// and lexical results are fused (0..1).
	VectorFusion float64

	// MinVectorScore is the similarity a vector hit needs for the vector
	// result set to count as sufficient.
	MinVectorScore float64

	// MinAnswerScore is the relevance a retrieved passage needs to count
	// as usable context for answer synthesis.
	MinAnswerScore float64
}

// DefaultWeights mirrors the empirically tuned constants of the scoring
// formula: 100 exact phrase, 50 source, 30 category, 20 per synonym hit
// capped at 80, term factor 5.
func DefaultWeights() Weights {
	return Weights{
		ExactPhrase:    100,
		Source:         50,
		Category:       30,
		Synonym:        20,
		SynonymCap:     80,
		TermFactor:     5,
		VectorFusion:   0.6,
		MinVectorScore: 0.25,
		MinAnswerScore: 0.05,
	}
}

// DefaultSynonyms is the fixed domain concept -> related terms mapping
// used for query expansion.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"feedback":      {"sbi", "situation", "behavior", "impact", "radical", "candor"},
		"coaching":      {"development", "growth", "mentoring", "guidance"},
		"delegation":    {"authority", "responsibility", "accountability", "decision"},
		"leadership":    {"management", "leading", "influence", "direction"},
		"communication": {"conversation", "discussion", "talking", "speaking"},
	}
}

// minTermLength filters stop-word-like short terms out of term scoring.
const minTermLength = 3

// scorePassages runs the multi-signal lexical scorer over the corpus.
// Passages with zero total score are excluded. The result is sorted by
// score descending, ties broken by passage ID ascending, so identical
// queries against an unchanged index return identical lists.
func scorePassages(
	corpus []domain.Passage,
	query string,
	ix driven.LexicalIndex,
	w Weights,
	synonyms map[string][]string,
) []domain.RankedPassage {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	terms := lexical.Tokenize(queryLower)
	if len(terms) == 0 {
		return nil
	}

	// Concepts present in the query activate their synonym expansions.
	var expansions []string
	for _, term := range terms {
		if related, ok := synonyms[term]; ok {
			expansions = append(expansions, related...)
		}
	}
	sort.Strings(expansions)

	var ranked []domain.RankedPassage
	for i := range corpus {
		p := &corpus[i]
		score, signals := scoreOne(p, queryLower, terms, expansions, ix, w)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, domain.RankedPassage{
			PassageID: p.ID,
			Score:     score,
			Signals:   signals,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].PassageID < ranked[j].PassageID
	})
	return ranked
}

// scoreOne computes one passage's summed signal contributions.
func scoreOne(
	p *domain.Passage,
	queryLower string,
	terms, expansions []string,
	ix driven.LexicalIndex,
	w Weights,
) (float64, []string) {
	var score float64
	var signals []string

	// Exact-phrase match of the full query: fixed high weight.
	if strings.Contains(strings.ToLower(p.Text), queryLower) {
		score += w.ExactPhrase
		signals = append(signals, domain.SignalExactPhrase)
	}

	// Source and category tag matches: fixed medium weight.
	sourceLower := strings.ToLower(p.DocumentID)
	categoryLower := ""
	if p.Metadata.Category != nil {
		categoryLower = strings.ToLower(*p.Metadata.Category)
	}
	frameworkLower := ""
	if p.Metadata.Framework != nil {
		frameworkLower = strings.ToLower(*p.Metadata.Framework)
	}

	var sourceHit, categoryHit bool
	for _, term := range terms {
		if len(term) < minTermLength {
			continue
		}
		if strings.Contains(sourceLower, term) {
			score += w.Source
			sourceHit = true
		}
		if categoryLower != "" && strings.Contains(categoryLower, term) {
			score += w.Category
			categoryHit = true
		}
		if frameworkLower != "" && strings.Contains(frameworkLower, term) {
			score += w.Category
			categoryHit = true
		}
	}
	if sourceHit {
		signals = append(signals, domain.SignalSource)
	}
	if categoryHit {
		signals = append(signals, domain.SignalCategory)
	}

	// Domain-synonym expansion, capped so it cannot dominate exact
	// matches.
	var synonymScore float64
	for _, expanded := range expansions {
		if ix.Frequency(p.ID, expanded) > 0 {
			synonymScore += w.Synonym
		}
	}
	if synonymScore > w.SynonymCap {
		synonymScore = w.SynonymCap
	}
	if synonymScore > 0 {
		score += synonymScore
		signals = append(signals, domain.SignalSynonym)
	}

	// Term-frequency scoring rewards longer, rarer, more-repeated terms.
	var tfScore float64
	for _, term := range terms {
		if len(term) < minTermLength {
			continue
		}
		if count := ix.Frequency(p.ID, term); count > 0 {
			tfScore += float64(count) * float64(len(term)) * w.TermFactor
		}
	}
	if tfScore > 0 {
		score += tfScore
		signals = append(signals, domain.SignalTermFrequency)
	}

	return score, signals
}
