package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeText collapses whitespace runs, drops control characters and caps
// the result at maxLen runes. maxLen <= 0 means no cap.
func SanitizeText(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	for _, r := range input {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		out = strings.TrimRightFunc(string(runes[:maxLen]), unicode.IsSpace)
	}
	return out
}
