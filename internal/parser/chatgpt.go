// Package parser turns a ChatGPT export archive into linearized
// conversations. It is pure: deterministic, side-effect free, and never
// touches the database — that's internal/ingestion's job.
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// chatGPTExportNode is one entry of a conversation's node-id -> node map.
type chatGPTExportNode struct {
	ID       string              `json:"id"`
	Message  *chatGPTExportMsg   `json:"message,omitempty"`
	Parent   *string             `json:"parent,omitempty"`
	Children []string            `json:"children,omitempty"`
}

type chatGPTExportMsg struct {
	ID         string                `json:"id"`
	Author     chatGPTExportAuthor   `json:"author"`
	CreateTime json.RawMessage       `json:"create_time,omitempty"`
	Content    chatGPTExportContent  `json:"content"`
}

type chatGPTExportAuthor struct {
	Role string `json:"role"`
}

type chatGPTExportContent struct {
	ContentType string          `json:"content_type"`
	Parts       json.RawMessage `json:"parts,omitempty"`
}

type chatGPTExportConversation struct {
	Title       string                        `json:"title,omitempty"`
	ID          string                        `json:"id"`
	CurrentNode string                        `json:"current_node"`
	Mapping     map[string]chatGPTExportNode  `json:"mapping"`
}

// ParsedMessage is one extracted, kept message in root->leaf order.
type ParsedMessage struct {
	Role          string
	Content       string
	TimestampUnix *float64
	SequenceIndex int
}

// ParsedConversation is C1's pure output: a linearized thread, not yet
// content-hashed or persisted.
type ParsedConversation struct {
	SourceSystem string
	ExternalID   string
	Title        string
	Messages     []ParsedMessage
}

// ParsingFailure is a structural failure for one conversation or the
// whole artifact; internal/ingestion turns it into a models.ParsingFailure row.
type ParsingFailure struct {
	ExternalID string
	Reason     string
	Details    string
}

// ParseChatGPTExport streams the outer JSON array one conversation object
// at a time, bounding peak memory to one conversation plus raw bytes
// (spec §4.1). r is passed through newTolerantJSONReader first so "//"
// line comments and trailing commas — both tolerated per spec §6 but
// rejected by encoding/json — are stripped as the stream is read. The
// returned channels close once the reader is exhausted; a fatal JSON
// syntax error at the array level is sent as a ParsingFailure with
// ExternalID="" before both channels close.
func ParseChatGPTExport(r io.Reader) (<-chan ParsedConversation, <-chan ParsingFailure) {
	conversations := make(chan ParsedConversation)
	failures := make(chan ParsingFailure, 1)

	go func() {
		defer close(conversations)
		defer close(failures)

		dec := json.NewDecoder(newTolerantJSONReader(r))

		tok, err := dec.Token()
		if err != nil {
			failures <- ParsingFailure{Reason: "input_malformed", Details: err.Error()}
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			failures <- ParsingFailure{Reason: "input_malformed", Details: "expected top-level JSON array"}
			return
		}

		for dec.More() {
			var raw chatGPTExportConversation
			if err := dec.Decode(&raw); err != nil {
				failures <- ParsingFailure{Reason: "input_malformed", Details: err.Error()}
				return
			}

			parsed, ok := parseConversation(raw)
			if !ok {
				continue
			}
			conversations <- parsed
		}
	}()

	return conversations, failures
}

// parseConversation performs the iterative, cycle-safe parent-pointer
// walk and field extraction described in spec §4.1. Malformed
// conversations (missing id, missing mapping, missing current node, or an
// empty post-walk chain) are dropped silently, per spec.
func parseConversation(raw chatGPTExportConversation) (ParsedConversation, bool) {
	if raw.ID == "" || raw.CurrentNode == "" || len(raw.Mapping) == 0 {
		return ParsedConversation{}, false
	}

	chain := walkParentChain(raw.Mapping, raw.CurrentNode)
	if len(chain) == 0 {
		return ParsedConversation{}, false
	}

	messages := make([]ParsedMessage, 0, len(chain))
	for _, node := range chain {
		msg, ok := extractMessage(node)
		if !ok {
			continue
		}
		msg.SequenceIndex = len(messages)
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return ParsedConversation{}, false
	}

	return ParsedConversation{
		SourceSystem: "ChatGPT",
		ExternalID:   raw.ID,
		Title:        raw.Title,
		Messages:     messages,
	}, true
}

// walkParentChain walks parent pointers from currentNode to the root,
// iteratively and with a visited set so a self-referencing or cyclic
// mapping cannot infinite-loop (spec §4.1.2, §9, scenario 2). The result
// is reversed so order is root->leaf.
func walkParentChain(mapping map[string]chatGPTExportNode, currentNode string) []chatGPTExportNode {
	visited := make(map[string]bool, len(mapping))
	var chain []chatGPTExportNode

	id := currentNode
	for id != "" {
		if visited[id] {
			break
		}
		visited[id] = true

		node, ok := mapping[id]
		if !ok {
			break
		}
		chain = append(chain, node)

		if node.Parent == nil {
			break
		}
		id = *node.Parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// extractMessage pulls role/content/timestamp from one node. Nodes
// without a message, with empty role, or with empty trimmed content are
// dropped (spec §4.1.4).
func extractMessage(node chatGPTExportNode) (ParsedMessage, bool) {
	if node.Message == nil {
		return ParsedMessage{}, false
	}
	m := node.Message

	role := strings.TrimSpace(m.Author.Role)
	if role == "" {
		return ParsedMessage{}, false
	}

	content := strings.TrimSpace(extractContent(m.Content))
	if content == "" {
		return ParsedMessage{}, false
	}

	return ParsedMessage{
		Role:          role,
		Content:       content,
		TimestampUnix: extractTimestamp(m.CreateTime),
	}, true
}

// extractContent joins string entries of content.parts with newlines.
// Newer exports use content_type "multimodal_text", whose parts may be
// plain strings or structured objects (e.g. image references); only the
// plain-string parts are kept, matching the spec's extraction scope.
func extractContent(c chatGPTExportContent) string {
	if len(c.Parts) == 0 {
		return ""
	}

	var rawParts []json.RawMessage
	if err := json.Unmarshal(c.Parts, &rawParts); err != nil {
		return ""
	}

	var lines []string
	for _, part := range rawParts {
		var s string
		if err := json.Unmarshal(part, &s); err != nil {
			continue // structured part (e.g. image); not defined for extraction
		}
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n")
}

// extractTimestamp accepts create_time as either a JSON number or a
// numeric string, per spec §6.
func extractTimestamp(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

// Summary is a small debug helper used by the CLI's verbose mode.
func (p ParsedConversation) Summary() string {
	return fmt.Sprintf("%s/%s: %d messages", p.SourceSystem, p.ExternalID, len(p.Messages))
}
