package media

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnescapableText is returned for overlay text that cannot be carried
// safely inside a filter expression.
var ErrUnescapableText = errors.New("subtitle text contains unsupported characters")

// ValidateOverlayText rejects empty text and text with control characters.
func ValidateOverlayText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("subtitle text is required")
	}
	for _, r := range text {
		if unicode.IsControl(r) {
			return ErrUnescapableText
		}
	}
	return nil
}

// EscapeFilterValue escapes a filter option value for use inside a -vf graph.
// Two levels apply: the option parser (\ ' :) and then the filtergraph parser
// (\ ' [ ] , ;).
func EscapeFilterValue(s string) string {
	return escapeChars(escapeChars(s, `\':`), `\'[],;`)
}

func escapeChars(s, special string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
