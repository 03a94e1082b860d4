package builder

import "strings"

// DefaultLocale is used when callers do not request one.
const DefaultLocale = "fr"

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`fr-ca`) fall back to their base language.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if value != "" && strings.EqualFold(key, candidate) {
				return value
			}
		}
	}
	return fallback
}

func localeCandidates(locale string) []string {
	locale = strings.TrimSpace(strings.ToLower(locale))
	if locale == "" {
		return []string{"default"}
	}
	out := []string{locale}
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		out = append(out, locale[:idx])
	}
	return append(out, "default")
}
