package chunking

import "strings"

// span is a candidate chunk boundary proposal: a half-open word range
// within one section's word list.
type span struct {
	start int
	end   int
}

// sentenceEnd reports whether a word terminates a sentence.
func sentenceEnd(word string) bool {
	trimmed := strings.TrimRight(word, `"')]`+"”’")
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "!") ||
		strings.HasSuffix(trimmed, "?") ||
		strings.HasSuffix(trimmed, ":")
}

// proposeSpans splits a word list into candidate spans. Each span targets
// cfg.TargetWords words and prefers to cut at the last sentence end within
// the [MinWords, MaxWords] window; if no sentence ends there, it cuts hard
// at the target. The proposal is deterministic and covers the input with
// no gaps.
func proposeSpans(words []string, cfg Config) []span {
	if len(words) == 0 {
		return nil
	}
	if len(words) <= cfg.MaxWords {
		return []span{{start: 0, end: len(words)}}
	}

	var spans []span
	start := 0
	for start < len(words) {
		remaining := len(words) - start
		if remaining <= cfg.MaxWords {
			spans = append(spans, span{start: start, end: len(words)})
			break
		}

		end := start + cfg.TargetWords
		if cut := lastSentenceCut(words, start+cfg.MinWords, start+cfg.MaxWords); cut > start {
			end = cut
		}
		spans = append(spans, span{start: start, end: end})
		start = end
	}
	return spans
}

// lastSentenceCut returns the exclusive word index just after the last
// sentence-ending word in [lo, hi), or -1 when none exists.
func lastSentenceCut(words []string, lo, hi int) int {
	if hi > len(words) {
		hi = len(words)
	}
	for i := hi - 1; i >= lo; i-- {
		if sentenceEnd(words[i]) {
			return i + 1
		}
	}
	return -1
}
