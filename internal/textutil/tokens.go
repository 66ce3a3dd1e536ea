package textutil

import (
	"regexp"
	"sort"
	"strings"
)

// tokenSplitPattern matches runs of characters that separate tokens.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokenize splits text into lowercase tokens. Empty tokens are dropped.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// SortedTokens returns the tokens of text in sorted order joined by a space.
func SortedTokens(text string) string {
	tokens := Tokenize(text)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
