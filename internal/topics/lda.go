// Package topics implements C8's LDA topic extractor (spec §4.8), sharing
// internal/similarity's tokenizer/normalizer and built on collapsed
// Gibbs-sampling LDA.
package topics

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/similarity"
)

// Document is one document entering the extractor — a conversation's
// concatenated segment content.
type Document struct {
	ConversationID uuid.UUID
	Text           string
}

// Options configures Extractor.Fit.
type Options struct {
	TopicCount       int
	MaxIterations    int
	Seed             int64
	StripDiacritics  bool
	KeywordsPerTopic int
}

// Topic is one extracted topic; label/keyword enrichment beyond the
// placeholder label is an external concern per spec §4.8.
type Topic struct {
	Index int
	Label string
}

// ConversationTopic is one conversation's score against one topic; a
// conversation's scores sum to ~1 (tolerance ±0.01, spec §8).
type ConversationTopic struct {
	ConversationID uuid.UUID
	TopicIndex     int
	Score          float64
}

// Result is Extractor.Fit's full output.
type Result struct {
	Topics             []Topic
	ConversationTopics []ConversationTopic
}

// Extractor fits an LDA model via collapsed Gibbs sampling.
type Extractor struct{}

// Fit runs up to opts.MaxIterations Gibbs sweeps for opts.TopicCount
// topics over a shared unigram bag-of-words vocabulary built with C7's
// tokenizer (spec §4.8).
func (Extractor) Fit(docs []Document, opts Options) (*Result, error) {
	if opts.TopicCount <= 0 {
		opts.TopicCount = 1
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}

	normOpts := similarity.NormalizeOptions{StripDiacritics: opts.StripDiacritics}

	vocabulary := make(map[string]int)
	docTokens := make([][]int, len(docs))
	for i, d := range docs {
		words := similarity.Tokenize(d.Text, normOpts)
		ids := make([]int, 0, len(words))
		for _, w := range words {
			idx, ok := vocabulary[w]
			if !ok {
				idx = len(vocabulary)
				vocabulary[w] = idx
			}
			ids = append(ids, idx)
		}
		docTokens[i] = ids
	}

	k := opts.TopicCount
	v := len(vocabulary)
	alpha := 50.0 / float64(k)
	beta := 0.1

	rng := newGibbsRNG(opts.Seed)

	docTopicCount := make([][]int, len(docs))
	docTopicTotal := make([]int, len(docs))
	topicWordCount := make([][]int, k)
	topicWordTotal := make([]int, k)
	assignment := make([][]int, len(docs))

	for t := 0; t < k; t++ {
		topicWordCount[t] = make([]int, v)
	}

	for i, tokens := range docTokens {
		docTopicCount[i] = make([]int, k)
		assignment[i] = make([]int, len(tokens))
		for pos, word := range tokens {
			t := int(rng.Float64() * float64(k))
			if t >= k {
				t = k - 1
			}
			assignment[i][pos] = t
			docTopicCount[i][t]++
			docTopicTotal[i]++
			topicWordCount[t][word]++
			topicWordTotal[t]++
		}
	}

	if v > 0 {
		for iter := 0; iter < opts.MaxIterations; iter++ {
			for i, tokens := range docTokens {
				for pos, word := range tokens {
					t := assignment[i][pos]
					docTopicCount[i][t]--
					docTopicTotal[i]--
					topicWordCount[t][word]--
					topicWordTotal[t]--

					probs := make([]float64, k)
					var sum float64
					for tt := 0; tt < k; tt++ {
						p := (float64(docTopicCount[i][tt]) + alpha) *
							(float64(topicWordCount[tt][word]) + beta) /
							(float64(topicWordTotal[tt]) + beta*float64(v))
						probs[tt] = p
						sum += p
					}

					draw := rng.Float64() * sum
					var cum float64
					newTopic := k - 1
					for tt, p := range probs {
						cum += p
						if cum >= draw {
							newTopic = tt
							break
						}
					}

					assignment[i][pos] = newTopic
					docTopicCount[i][newTopic]++
					docTopicTotal[i]++
					topicWordCount[newTopic][word]++
					topicWordTotal[newTopic]++
				}
			}
		}
	}

	topics := make([]Topic, k)
	for t := 0; t < k; t++ {
		topics[t] = Topic{Index: t, Label: topicLabel(t)}
	}

	var convTopics []ConversationTopic
	for i, d := range docs {
		total := docTopicTotal[i]
		for t := 0; t < k; t++ {
			var score float64
			if total > 0 {
				score = (float64(docTopicCount[i][t]) + alpha) / (float64(total) + alpha*float64(k))
			} else {
				score = 1.0 / float64(k)
			}
			convTopics = append(convTopics, ConversationTopic{
				ConversationID: d.ConversationID,
				TopicIndex:     t,
				Score:          score,
			})
		}
	}
	normalizePerConversation(convTopics, len(docs), k)

	return &Result{Topics: topics, ConversationTopics: convTopics}, nil
}

// normalizePerConversation rescales each conversation's k scores to sum
// to exactly 1, correcting any rounding drift from the Dirichlet
// smoothing formula (spec §8 tolerance ±0.01).
func normalizePerConversation(scores []ConversationTopic, numDocs, k int) {
	for d := 0; d < numDocs; d++ {
		start := d * k
		if start+k > len(scores) {
			break
		}
		var sum float64
		for i := start; i < start+k; i++ {
			sum += scores[i].Score
		}
		if sum == 0 {
			continue
		}
		for i := start; i < start+k; i++ {
			scores[i].Score = scores[i].Score / sum
		}
	}
}

func topicLabel(index int) string {
	return "Topic " + strconv.Itoa(index+1)
}
