package words

import (
	"iter"
	"strings"
)

// isTokenByte reports whether b belongs inside a token. Apostrophes are part
// of the token, every other byte outside [A-Za-z0-9] separates tokens.
func isTokenByte(b byte) bool {
	return b >= 'a' && b <= 'z' ||
		b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' ||
		b == '\''
}

// Tokens lazily yields the lowercase tokens of text.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i := 0; i < len(text); i++ {
			if isTokenByte(text[i]) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(strings.ToLower(text[start:i])) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(strings.ToLower(text[start:]))
		}
	}
}

// Tokenize splits text into a slice of lowercase tokens.
func Tokenize(text string) []string {
	tokens := make([]string, 0)
	for token := range Tokens(text) {
		tokens = append(tokens, token)
	}
	return tokens
}
