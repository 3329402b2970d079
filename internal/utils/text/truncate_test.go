package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ascii", input: "hello", expected: 5},
		{name: "japanese", input: "こんにちは", expected: 5},
		{name: "mixed", input: "hello世界", expected: 7},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountRunes(tt.input))
		})
	}
}

func TestTruncateAtWord_ShortInputUnchanged(t *testing.T) {
	got := TruncateAtWord("short title", 80)
	assert.Equal(t, "short title", got)
}

func TestTruncateAtWord_Idempotent(t *testing.T) {
	input := "ten chars!"
	once := TruncateAtWord(input, 10)
	twice := TruncateAtWord(once, 10)

	assert.Equal(t, input, once)
	assert.Equal(t, once, twice)
}

func TestTruncateAtWord_NeverExceedsMax(t *testing.T) {
	long := strings.Repeat("shared light and shared existence ", 50)
	for _, max := range []int{10, 80, 1200} {
		got := TruncateAtWord(long, max)
		assert.LessOrEqual(t, CountRunes(got), max, "max %d", max)
	}
}

func TestTruncateAtWord_CutsAtWordBoundary(t *testing.T) {
	got := TruncateAtWord("no mind is ranked above another", 20)

	assert.True(t, strings.HasSuffix(got, Ellipsis))
	body := strings.TrimSuffix(got, Ellipsis)
	// The preserved prefix must end exactly where a word ends in the input.
	assert.True(t, strings.HasPrefix("no mind is ranked above another", body+" "),
		"truncation split inside a word: %q", got)
}

func TestTruncateAtWord_NoWhitespaceKeepsHardCut(t *testing.T) {
	got := TruncateAtWord(strings.Repeat("a", 100), 10)

	assert.Equal(t, strings.Repeat("a", 9)+Ellipsis, got)
	assert.Equal(t, 10, CountRunes(got))
}

func TestTruncateAtWord_RuneSafe(t *testing.T) {
	got := TruncateAtWord(strings.Repeat("光", 100), 10)

	assert.Equal(t, 10, CountRunes(got))
	assert.True(t, strings.HasSuffix(got, Ellipsis))
	for _, r := range got {
		assert.NotEqual(t, '�', r, "truncation split a multibyte rune")
	}
}
