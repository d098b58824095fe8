package textindex

import (
	"regexp"
	"strings"
)

var wordSplitter = regexp.MustCompile(`\W+`)

// StemFunc maps a token to its canonical stem. Porter stemming is treated
// by the spec as an opaque external collaborator; textstem.Stem is the
// default.
type StemFunc func(token string) string

// Tokenize lowercases text, splits it on runs of non-word characters,
// drops empty tokens, and drops stop words — spec §4.5.1 steps 1-4.
// Stemming (step 5) is applied separately by the caller once the token
// list is final, since it is injectable per Options.
func Tokenize(text string, stopWords map[string]bool) []string {
	lower := strings.ToLower(text)
	parts := wordSplitter.Split(lower, -1)

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if stopWords != nil && stopWords[p] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Stems tokenizes text and stems every surviving token, preserving
// duplicates and order (spec §4.5.1 step 5).
func Stems(text string, stopWords map[string]bool, stem StemFunc) []string {
	tokens := Tokenize(text, stopWords)
	stems := make([]string, len(tokens))
	for i, tok := range tokens {
		stems[i] = stem(tok)
	}
	return stems
}
