// Package similarity implements C7's TF-IDF vectorizer and all-pairs
// cosine similarity engine (spec §4.7), sharing its normalization and
// tokenization with internal/topics' LDA extractor.
package similarity

import (
	"regexp"
	"strings"

	"github.com/gosimple/unidecode"
)

var (
	punctDigitRe = regexp.MustCompile(`[^a-z\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stopwords is a small built-in English stopword list; not exhaustive,
// matching the pragmatic scope spec §4.7 describes.
var stopwords = buildStopwordSet([]string{
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
	"can", "could", "did", "do", "does", "for", "from", "had", "has",
	"have", "he", "her", "hers", "him", "his", "how", "i", "if", "in",
	"into", "is", "it", "its", "just", "me", "my", "no", "nor", "not",
	"of", "on", "or", "our", "out", "she", "should", "so", "some",
	"such", "than", "that", "the", "their", "them", "then", "there",
	"these", "they", "this", "to", "too", "up", "us", "was", "we",
	"were", "what", "when", "where", "which", "who", "why", "will",
	"with", "would", "you", "your",
})

func buildStopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// NormalizeOptions controls the shared text pipeline.
type NormalizeOptions struct {
	StripDiacritics bool
}

// Tokenize lowercases, optionally strips diacritics, strips punctuation
// and digits, collapses whitespace, and drops stopwords — the normalizer
// C7 and C8 both build on.
func Tokenize(text string, opts NormalizeOptions) []string {
	lower := strings.ToLower(text)
	if opts.StripDiacritics {
		lower = unidecode.Unidecode(lower)
	}
	stripped := punctDigitRe.ReplaceAllString(lower, " ")
	collapsed := strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
	if collapsed == "" {
		return nil
	}

	words := strings.Split(collapsed, " ")
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}
