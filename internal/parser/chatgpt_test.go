package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(conversations <-chan ParsedConversation, failures <-chan ParsingFailure) ([]ParsedConversation, []ParsingFailure) {
	var convs []ParsedConversation
	var fails []ParsingFailure
	done := make(chan struct{})
	go func() {
		for c := range conversations {
			convs = append(convs, c)
		}
		close(done)
	}()
	for f := range failures {
		fails = append(fails, f)
	}
	<-done
	return convs, fails
}

func TestParseChatGPTExport_LinearizesRootToLeaf(t *testing.T) {
	raw := `[{
		"id": "conv-1",
		"title": "Test",
		"current_node": "n2",
		"mapping": {
			"n0": {"id": "n0", "message": {"id": "m0", "author": {"role": "system"}, "content": {"content_type": "text", "parts": ["sys"]}}, "children": ["n1"]},
			"n1": {"id": "n1", "parent": "n0", "message": {"id": "m1", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["hello"]}}, "children": ["n2"]},
			"n2": {"id": "n2", "parent": "n1", "message": {"id": "m2", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["hi there"]}}}
		}
	}]`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	require.Empty(t, fails)
	require.Len(t, convs, 1)
	c := convs[0]
	assert.Equal(t, "conv-1", c.ExternalID)
	require.Len(t, c.Messages, 3)
	assert.Equal(t, "system", c.Messages[0].Role)
	assert.Equal(t, "user", c.Messages[1].Role)
	assert.Equal(t, "assistant", c.Messages[2].Role)
	assert.Equal(t, "hi there", c.Messages[2].Content)
	for i, m := range c.Messages {
		assert.Equal(t, i, m.SequenceIndex)
	}
}

func TestParseChatGPTExport_SelfReferencingParentDoesNotInfiniteLoop(t *testing.T) {
	raw := `[{
		"id": "conv-cycle",
		"current_node": "nX",
		"mapping": {
			"nX": {"id": "nX", "parent": "nX", "message": {"id": "mX", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["only message"]}}}
		}
	}]`

	done := make(chan struct{})
	var convs []ParsedConversation
	var fails []ParsingFailure
	go func() {
		conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
		convs, fails = collect(conversations, failures)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ParseChatGPTExport did not terminate on a self-referencing parent pointer")
	}

	require.Empty(t, fails)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, "only message", convs[0].Messages[0].Content)
}

func TestParseChatGPTExport_DropsConversationWithNoMessages(t *testing.T) {
	raw := `[{
		"id": "conv-empty",
		"current_node": "n0",
		"mapping": {
			"n0": {"id": "n0"}
		}
	}]`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	assert.Empty(t, fails)
	assert.Empty(t, convs)
}

func TestParseChatGPTExport_DropsMissingRequiredFields(t *testing.T) {
	raw := `[{"title": "no id or mapping"}]`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	assert.Empty(t, fails)
	assert.Empty(t, convs)
}

func TestParseChatGPTExport_MalformedTopLevelReportsFailure(t *testing.T) {
	raw := `{"not": "an array"}`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	assert.Empty(t, convs)
	require.Len(t, fails, 1)
	assert.Equal(t, "input_malformed", fails[0].Reason)
}

func TestParseChatGPTExport_KeepsOnlyPlainStringContentParts(t *testing.T) {
	raw := `[{
		"id": "conv-multi",
		"current_node": "n0",
		"mapping": {
			"n0": {"id": "n0", "message": {"id": "m0", "author": {"role": "user"}, "content": {"content_type": "multimodal_text", "parts": ["hello", {"type": "image"}, "world"]}}}
		}
	}]`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	require.Empty(t, fails)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, "hello\nworld", convs[0].Messages[0].Content)
}

func TestParseChatGPTExport_TolerantOfLineCommentsAndTrailingCommas(t *testing.T) {
	raw := `[
		// a leading comment before the conversation
		{
			"id": "conv-tolerant", // trailing comment on a field
			"current_node": "n0",
			"mapping": {
				"n0": {
					"id": "n0",
					"message": {
						"id": "m0",
						"author": {"role": "user"},
						"content": {"content_type": "text", "parts": ["hello",]}, // trailing comma in array
					},
				}, // trailing comma in object
			},
		},
	]`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	require.Empty(t, fails)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, "hello", convs[0].Messages[0].Content)
}

func TestParseChatGPTExport_AcceptsNumericOrStringTimestamp(t *testing.T) {
	raw := `[{
		"id": "conv-ts",
		"current_node": "n1",
		"mapping": {
			"n0": {"id": "n0", "message": {"id": "m0", "author": {"role": "user"}, "create_time": 1700000000.5, "content": {"content_type": "text", "parts": ["a"]}}, "children": ["n1"]},
			"n1": {"id": "n1", "parent": "n0", "message": {"id": "m1", "author": {"role": "assistant"}, "create_time": "1700000100.25", "content": {"content_type": "text", "parts": ["b"]}}}
		}
	}]`

	conversations, failures := ParseChatGPTExport(strings.NewReader(raw))
	convs, fails := collect(conversations, failures)

	require.Empty(t, fails)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 2)
	require.NotNil(t, convs[0].Messages[0].TimestampUnix)
	require.NotNil(t, convs[0].Messages[1].TimestampUnix)
	assert.InDelta(t, 1700000000.5, *convs[0].Messages[0].TimestampUnix, 1e-6)
	assert.InDelta(t, 1700000100.25, *convs[0].Messages[1].TimestampUnix, 1e-6)
}
