package retriever

import (
	"strings"
	"unicode"
)

// tokenize splits free text on non-alphanumeric boundaries, lowercases,
// and drops stopword-length tokens (≤ 2 characters).
func tokenize(text string) []string {
	out := rawTokens(text)
	for i, t := range out {
		out[i] = strings.ToLower(t)
	}
	return out
}

// rawTokens is tokenize without lowercasing — the cross-reference index is
// keyed by case-sensitive symbol names.
func rawTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}
