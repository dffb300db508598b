package entities

import "strings"

// Language is an ISO-ish language code used by the survey wizard.
type Language string

const (
	LanguageEN Language = "EN"
	LanguageKO Language = "KO"
	LanguageJP Language = "JP"
	LanguageCN Language = "CN"
)

// resolutionPriority is the fallback order when a field has no value in
// the requested language.
var resolutionPriority = []Language{LanguageEN, LanguageKO, LanguageJP, LanguageCN}

// ParseLanguage normalizes a language code, defaulting to EN.
func ParseLanguage(s string) Language {
	switch Language(strings.ToUpper(strings.TrimSpace(s))) {
	case LanguageKO:
		return LanguageKO
	case LanguageJP:
		return LanguageJP
	case LanguageCN:
		return LanguageCN
	default:
		return LanguageEN
	}
}

// LocalizedText holds per-language variants of a survey answer keyed by
// language code.
type LocalizedText map[Language]string

// Resolve returns the preferred language's value, falling back through
// the fixed priority order to the first non-empty variant.
func (t LocalizedText) Resolve(preferred Language) string {
	if v, ok := t[preferred]; ok && v != "" {
		return v
	}
	for _, lang := range resolutionPriority {
		if v, ok := t[lang]; ok && v != "" {
			return v
		}
	}
	return ""
}
