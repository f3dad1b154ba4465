package chunker

import (
	"strings"
	"unicode"
)

// Truncate keeps the first maxWords words of text, collapsing whitespace.
// Words are approximated by whitespace-delimited fields.
func Truncate(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords >= 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

// StreamWords splits text into the pieces a word-by-word stream emits. Each
// piece is one word followed by the whitespace after it, so the pieces
// concatenate back to text and no piece is blank. Leading whitespace goes
// with the first word.
func StreamWords(text string) []string {
	var (
		pieces    []string
		start     int
		seenWord  bool
		prevSpace bool
	)
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && prevSpace && seenWord {
			pieces = append(pieces, text[start:i])
			start = i
		}
		if !space {
			seenWord = true
		}
		prevSpace = space
	}
	if seenWord {
		pieces = append(pieces, text[start:])
	}
	return pieces
}
