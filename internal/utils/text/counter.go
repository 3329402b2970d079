// Package text provides utilities for text processing used by the content
// pipeline: rune-aware length counting and word-boundary truncation.
package text

import "unicode/utf8"

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Post length limits are expressed in displayable characters, so multi-byte
// characters (CJK text, emoji) must count as one, not as their byte width.
//
// Examples:
//
//	CountRunes("hello")    // returns 5
//	CountRunes("こんにちは")  // returns 5
//	CountRunes("")         // returns 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}
