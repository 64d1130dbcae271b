package similarity

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Document is one unit of text entering the vectorizer — a conversation's
// concatenated segment content, keyed by conversation id.
type Document struct {
	ConversationID uuid.UUID
	Text           string
}

// Options configures Vectorizer.Fit.
type Options struct {
	VocabularyCap           int
	StripDiacritics         bool
	MinSimilarity           float64
	MaxPairsPerConversation int
}

// sparseVector is a TF-IDF vector keyed by vocabulary index; gonum's
// mat.Dense would be wasteful for a capped, sparse vocabulary at this
// scale, so the dot-product/cosine math is hand-rolled here instead.
type sparseVector map[int]float64

func (v sparseVector) dot(o sparseVector) float64 {
	a, b := v, o
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for k, av := range a {
		if bv, ok := b[k]; ok {
			sum += av * bv
		}
	}
	return sum
}

func (v sparseVector) norm() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func cosine(a, b sparseVector, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return a.dot(b) / (normA * normB)
}

// Model is a fitted TF-IDF space over a document set.
type Model struct {
	vocabulary map[string]int // term -> index
	idf        []float64
	vectors    map[uuid.UUID]sparseVector
	norms      map[uuid.UUID]float64
	opts       Options
}

// Vectorizer fits a Model from a document set.
type Vectorizer struct{}

// Fit builds the vocabulary (document-frequency ranked, capped at
// opts.VocabularyCap), IDF weights, and each document's TF-IDF vector.
func (Vectorizer) Fit(docs []Document, opts Options) (*Model, error) {
	if opts.VocabularyCap <= 0 {
		opts.VocabularyCap = 500
	}

	normOpts := NormalizeOptions{StripDiacritics: opts.StripDiacritics}
	tokensByDoc := make([][]string, len(docs))
	df := make(map[string]int)

	for i, d := range docs {
		tokens := Tokenize(d.Text, normOpts)
		tokensByDoc[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	type termDF struct {
		term string
		df   int
	}
	ranked := make([]termDF, 0, len(df))
	for t, c := range df {
		ranked = append(ranked, termDF{term: t, df: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].df != ranked[j].df {
			return ranked[i].df > ranked[j].df
		}
		return ranked[i].term < ranked[j].term
	})
	if len(ranked) > opts.VocabularyCap {
		ranked = ranked[:opts.VocabularyCap]
	}

	vocabulary := make(map[string]int, len(ranked))
	idf := make([]float64, len(ranked))
	n := float64(len(docs))
	for i, td := range ranked {
		vocabulary[td.term] = i
		idf[i] = math.Log((1+n)/(1+float64(td.df))) + 1
	}

	vectors := make(map[uuid.UUID]sparseVector, len(docs))
	norms := make(map[uuid.UUID]float64, len(docs))
	for i, d := range docs {
		tf := make(map[int]float64)
		for _, t := range tokensByDoc[i] {
			idx, ok := vocabulary[t]
			if !ok {
				continue
			}
			tf[idx]++
		}
		vec := make(sparseVector, len(tf))
		for idx, count := range tf {
			vec[idx] = count * idf[idx]
		}
		vectors[d.ConversationID] = vec
		norms[d.ConversationID] = vec.norm()
	}

	return &Model{vocabulary: vocabulary, idf: idf, vectors: vectors, norms: norms, opts: opts}, nil
}

// vectorizeQuery projects free text into the fitted vocabulary/IDF space.
func (m *Model) vectorizeQuery(text string) sparseVector {
	tokens := Tokenize(text, NormalizeOptions{StripDiacritics: m.opts.StripDiacritics})
	tf := make(map[int]float64)
	for _, t := range tokens {
		idx, ok := m.vocabulary[t]
		if !ok {
			continue
		}
		tf[idx]++
	}
	vec := make(sparseVector, len(tf))
	for idx, count := range tf {
		vec[idx] = count * m.idf[idx]
	}
	return vec
}
