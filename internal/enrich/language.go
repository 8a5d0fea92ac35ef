package enrich

import "unicode"

// Language codes returned by DetectLanguage.
const (
	LanguageEnglish = "en"
	LanguageHebrew  = "he"
	LanguageUnknown = "unknown"
)

// DetectLanguage classifies text by script statistics. It distinguishes
// Hebrew from Latin-script text without any external service so that
// detection survives completion-service outage. Mixed text is classified
// by the dominant script.
func DetectLanguage(text string) string {
	var latin, hebrew int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hebrew, r):
			hebrew++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}

	if latin == 0 && hebrew == 0 {
		return LanguageUnknown
	}
	if hebrew > latin {
		return LanguageHebrew
	}
	return LanguageEnglish
}
