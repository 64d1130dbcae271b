package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlake/chatlake/internal/parser"
)

func conv(msgs ...parser.ParsedMessage) parser.ParsedConversation {
	return parser.ParsedConversation{SourceSystem: "chatgpt-export", ExternalID: "abc", Messages: msgs}
}

func TestContentHash_IsDeterministic(t *testing.T) {
	assert.Equal(t, ContentHash("hello"), ContentHash("hello"))
}

func TestContentHash_DiffersOnDifferentContent(t *testing.T) {
	assert.NotEqual(t, ContentHash("hello"), ContentHash("world"))
}

func TestConversationKey_IsDeterministic(t *testing.T) {
	c := conv(
		parser.ParsedMessage{Role: "user", Content: "hi"},
		parser.ParsedMessage{Role: "assistant", Content: "hello"},
	)
	assert.Equal(t, ConversationKey(c), ConversationKey(c))
}

func TestConversationKey_StableAcrossReimportWithSameContent(t *testing.T) {
	a := conv(
		parser.ParsedMessage{Role: "user", Content: "hi", SequenceIndex: 0},
		parser.ParsedMessage{Role: "assistant", Content: "hello", SequenceIndex: 1},
	)
	b := conv(
		parser.ParsedMessage{Role: "user", Content: "hi", SequenceIndex: 0},
		parser.ParsedMessage{Role: "assistant", Content: "hello", SequenceIndex: 1},
	)
	assert.Equal(t, ConversationKey(a), ConversationKey(b))
}

func TestConversationKey_IgnoresTimestamps(t *testing.T) {
	t1 := 1000.0
	t2 := 2000.0
	a := conv(parser.ParsedMessage{Role: "user", Content: "hi", TimestampUnix: &t1})
	b := conv(parser.ParsedMessage{Role: "user", Content: "hi", TimestampUnix: &t2})
	assert.Equal(t, ConversationKey(a), ConversationKey(b))
}

func TestConversationKey_DiffersOnDifferentRoleSequence(t *testing.T) {
	a := conv(
		parser.ParsedMessage{Role: "user", Content: "hi"},
		parser.ParsedMessage{Role: "assistant", Content: "hello"},
	)
	b := conv(
		parser.ParsedMessage{Role: "assistant", Content: "hi"},
		parser.ParsedMessage{Role: "user", Content: "hello"},
	)
	assert.NotEqual(t, ConversationKey(a), ConversationKey(b))
}

func TestConversationKey_DiffersOnDifferentContent(t *testing.T) {
	a := conv(parser.ParsedMessage{Role: "user", Content: "hi"})
	b := conv(parser.ParsedMessage{Role: "user", Content: "bye"})
	assert.NotEqual(t, ConversationKey(a), ConversationKey(b))
}

func TestMessageWindow_AllNullTimestampsYieldsNilWindow(t *testing.T) {
	messages := []parser.ParsedMessage{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
	}
	first, last := messageWindow(messages)
	assert.Nil(t, first)
	assert.Nil(t, last)
}

func TestMessageWindow_ComputesMinMax(t *testing.T) {
	t1, t2, t3 := 100.0, 50.0, 200.0
	messages := []parser.ParsedMessage{
		{Role: "user", Content: "a", TimestampUnix: &t1},
		{Role: "assistant", Content: "b", TimestampUnix: &t2},
		{Role: "user", Content: "c", TimestampUnix: &t3},
	}
	first, last := messageWindow(messages)
	require.NotNil(t, first)
	require.NotNil(t, last)
	assert.True(t, first.Before(*last) || first.Equal(*last))
	assert.Equal(t, unixToTime(&t2).Unix(), first.Unix())
	assert.Equal(t, unixToTime(&t3).Unix(), last.Unix())
}
