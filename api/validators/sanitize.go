package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rune limits for buyer-entered return request text.
const (
	MaxReasonRunes      = 200
	MaxDescriptionRunes = 2000
	MaxReviewRunes      = 1000
)

// SanitizeText trims input, drops control characters other than newline and
// tab, and cuts the result to maxRunes runes. maxRunes <= 0 disables the cut.
func SanitizeText(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == utf8.RuneError || unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if maxRunes > 0 && utf8.RuneCountInString(cleaned) > maxRunes {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:maxRunes]))
	}
	return cleaned
}

// SanitizeOptionalText applies SanitizeText and maps an empty result to nil.
func SanitizeOptionalText(input *string, maxRunes int) *string {
	if input == nil {
		return nil
	}
	cleaned := SanitizeText(*input, maxRunes)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
