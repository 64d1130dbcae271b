package topics

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit_ConversationScoresSumToOne(t *testing.T) {
	docs := []Document{
		{ConversationID: uuid.New(), Text: "cats dogs pets animals furry friends"},
		{ConversationID: uuid.New(), Text: "rockets space stars planets orbit launch"},
		{ConversationID: uuid.New(), Text: "cats pets furry animals cute kittens"},
		{ConversationID: uuid.New(), Text: "rockets launch orbit satellites space station"},
	}
	opts := Options{TopicCount: 2, MaxIterations: 30, Seed: 1}

	result, err := (Extractor{}).Fit(docs, opts)
	require.NoError(t, err)

	byConversation := make(map[uuid.UUID]float64)
	for _, ct := range result.ConversationTopics {
		byConversation[ct.ConversationID] += ct.Score
	}
	for id, sum := range byConversation {
		assert.InDeltaf(t, 1.0, sum, 0.01, "conversation %s scores should sum to ~1, got %f", id, sum)
	}
}

func TestFit_ProducesRequestedTopicCount(t *testing.T) {
	docs := []Document{
		{ConversationID: uuid.New(), Text: "alpha beta gamma"},
		{ConversationID: uuid.New(), Text: "delta epsilon zeta"},
	}
	opts := Options{TopicCount: 3, MaxIterations: 10, Seed: 2}

	result, err := (Extractor{}).Fit(docs, opts)
	require.NoError(t, err)
	assert.Len(t, result.Topics, 3)
}

func TestFit_EmptyDocumentStillGetsUniformScores(t *testing.T) {
	docs := []Document{
		{ConversationID: uuid.New(), Text: ""},
		{ConversationID: uuid.New(), Text: "some actual words here"},
	}
	opts := Options{TopicCount: 2, MaxIterations: 5, Seed: 3}

	result, err := (Extractor{}).Fit(docs, opts)
	require.NoError(t, err)

	byConversation := make(map[uuid.UUID]float64)
	for _, ct := range result.ConversationTopics {
		byConversation[ct.ConversationID] += ct.Score
	}
	for _, sum := range byConversation {
		assert.InDelta(t, 1.0, sum, 0.01)
	}
}

func TestFit_IsDeterministicForSameSeed(t *testing.T) {
	docs := []Document{
		{ConversationID: uuid.New(), Text: "cats dogs pets"},
		{ConversationID: uuid.New(), Text: "rockets space orbit"},
	}
	opts := Options{TopicCount: 2, MaxIterations: 20, Seed: 42}

	r1, err := (Extractor{}).Fit(docs, opts)
	require.NoError(t, err)
	r2, err := (Extractor{}).Fit(docs, opts)
	require.NoError(t, err)

	assert.Equal(t, r1.ConversationTopics, r2.ConversationTopics)
}
