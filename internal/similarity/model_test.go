package similarity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOpts() Options {
	return Options{VocabularyCap: 500, MinSimilarity: 0, MaxPairsPerConversation: 0}
}

func TestAllPairs_IdenticalDocumentsHaveSimilarityOne(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	docs := []Document{
		{ConversationID: a, Text: "the quick brown fox jumps over the lazy dog"},
		{ConversationID: b, Text: "the quick brown fox jumps over the lazy dog"},
	}
	model, err := (Vectorizer{}).Fit(docs, defaultOpts())
	require.NoError(t, err)

	edges, err := model.AllPairs(context.Background(), defaultOpts())
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.InDelta(t, 1.0, edges[0].Similarity, 1e-6)
}

func TestAllPairs_EndpointsAreCanonicallyOrdered(t *testing.T) {
	ids := make([]uuid.UUID, 5)
	docs := make([]Document, 5)
	for i := range ids {
		ids[i] = uuid.New()
		docs[i] = Document{ConversationID: ids[i], Text: "alpha beta gamma delta shared terms across docs"}
	}
	model, err := (Vectorizer{}).Fit(docs, defaultOpts())
	require.NoError(t, err)

	edges, err := model.AllPairs(context.Background(), defaultOpts())
	require.NoError(t, err)
	for _, e := range edges {
		assert.Less(t, e.ConversationIDA.String(), e.ConversationIDB.String())
	}
}

func TestAllPairs_RespectsPerConversationQuota(t *testing.T) {
	hub := uuid.New()
	docs := []Document{{ConversationID: hub, Text: "shared common vocabulary words appear everywhere"}}
	for i := 0; i < 5; i++ {
		docs = append(docs, Document{ConversationID: uuid.New(), Text: "shared common vocabulary words appear everywhere"})
	}
	opts := defaultOpts()
	opts.MaxPairsPerConversation = 2

	model, err := (Vectorizer{}).Fit(docs, opts)
	require.NoError(t, err)
	edges, err := model.AllPairs(context.Background(), opts)
	require.NoError(t, err)

	counts := make(map[uuid.UUID]int)
	for _, e := range edges {
		counts[e.ConversationIDA]++
		counts[e.ConversationIDB]++
	}
	for id, c := range counts {
		assert.LessOrEqualf(t, c, opts.MaxPairsPerConversation+1, "conversation %s exceeded quota by more than the allowed strict-overflow case", id)
	}
}

func TestAllPairs_BelowThresholdPairsAreDropped(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	docs := []Document{
		{ConversationID: a, Text: "completely unrelated words about gardening"},
		{ConversationID: b, Text: "totally different content regarding astrophysics"},
	}
	opts := defaultOpts()
	opts.MinSimilarity = 0.99

	model, err := (Vectorizer{}).Fit(docs, opts)
	require.NoError(t, err)
	edges, err := model.AllPairs(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestFit_VocabularyCapIsRespected(t *testing.T) {
	docs := []Document{
		{ConversationID: uuid.New(), Text: "one two three four five six seven eight nine ten"},
	}
	opts := defaultOpts()
	opts.VocabularyCap = 3

	model, err := (Vectorizer{}).Fit(docs, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(model.vocabulary), 3)
}

func TestAllPairs_IsDeterministicAcrossRuns(t *testing.T) {
	docs := []Document{
		{ConversationID: uuid.New(), Text: "alpha beta gamma"},
		{ConversationID: uuid.New(), Text: "beta gamma delta"},
		{ConversationID: uuid.New(), Text: "gamma delta epsilon"},
	}
	opts := defaultOpts()

	m1, err := (Vectorizer{}).Fit(docs, opts)
	require.NoError(t, err)
	e1, err := m1.AllPairs(context.Background(), opts)
	require.NoError(t, err)

	m2, err := (Vectorizer{}).Fit(docs, opts)
	require.NoError(t, err)
	e2, err := m2.AllPairs(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, e1, e2)
}
