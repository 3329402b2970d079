package text

import (
	"strings"
	"unicode"
)

// Ellipsis is appended to truncated text to mark the cut.
const Ellipsis = "…"

// TruncateAtWord shortens s to at most max runes, including the ellipsis
// marker. The cut backs up to the last whitespace boundary before the limit
// so no word is split; when the text contains no whitespace before the
// cutoff the hard cut is kept as-is. Text already within the limit is
// returned unchanged, so the operation is idempotent.
func TruncateAtWord(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	// Reserve one rune for the ellipsis so the result never exceeds max.
	cut := string(runes[:max-1])
	if idx := lastWhitespace(cut); idx > 0 {
		cut = cut[:idx]
	}

	return strings.TrimRight(cut, " \t\n") + Ellipsis
}

// lastWhitespace returns the byte index of the last whitespace rune in s,
// or -1 when s contains none.
func lastWhitespace(s string) int {
	return strings.LastIndexFunc(s, unicode.IsSpace)
}
