// Package segmenter partitions a conversation's messages into contiguous,
// topic-coherent ranges suitable for embedding (spec §4.3).
package segmenter

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/models"
)

// Options is spec §6's segmenter configuration.
type Options struct {
	MaxMessagesPerSegment int
	MaxCharsPerSegment    int
	MaxTimestampGap       time.Duration // 0 disables the gap boundary
}

// DefaultOptions mirrors common BERTopic-pipeline segment sizing.
func DefaultOptions() Options {
	return Options{
		MaxMessagesPerSegment: 20,
		MaxCharsPerSegment:    4000,
		MaxTimestampGap:       30 * time.Minute,
	}
}

// Segment is one emitted range before it's stamped with a run id and
// persisted as a models.ConversationSegment.
type Segment struct {
	SegmentIndex      int
	StartMessageIndex int
	EndMessageIndex   int // inclusive
	MessageCount      int
	ContentText       string
	ContentHash       [32]byte
}

// Segment applies the three-way boundary policy — message-count cap,
// cumulative character cap, timestamp-gap threshold — and returns
// contiguous, non-overlapping, gap-free ranges covering
// [0, len(messages)), the segment-coverage invariant from spec §8.
func Segment(messages []models.Message, opts Options) []Segment {
	if len(messages) == 0 {
		return nil
	}

	var segments []Segment
	start := 0
	var lines []string
	chars := 0

	flush := func(end int) {
		text := strings.Join(lines, "\n")
		segments = append(segments, Segment{
			SegmentIndex:      len(segments),
			StartMessageIndex: start,
			EndMessageIndex:   end,
			MessageCount:      end - start + 1,
			ContentText:       text,
			ContentHash:       sha256.Sum256([]byte(text)),
		})
		lines = nil
		chars = 0
		start = end + 1
	}

	for i, m := range messages {
		line := fmt.Sprintf("%s: %s", strings.ToUpper(string(m.Role)), m.Content)
		lines = append(lines, line)
		chars += len(line)

		messageCountExceeded := (i - start + 1) >= opts.MaxMessagesPerSegment
		charsExceeded := opts.MaxCharsPerSegment > 0 && chars >= opts.MaxCharsPerSegment
		gapExceeded := false
		if opts.MaxTimestampGap > 0 && i+1 < len(messages) {
			gapExceeded = timestampGapExceeds(m, messages[i+1], opts.MaxTimestampGap)
		}

		isLast := i == len(messages)-1
		if isLast || messageCountExceeded || charsExceeded || gapExceeded {
			flush(i)
		}
	}

	return segments
}

// timestampGapExceeds reports whether the gap between two consecutive
// messages' timestamps exceeds threshold. Messages with a missing
// timestamp never trigger a gap boundary.
func timestampGapExceeds(a, b models.Message, threshold time.Duration) bool {
	if a.TimestampUtc == nil || b.TimestampUtc == nil {
		return false
	}
	gap := b.TimestampUtc.Sub(*a.TimestampUtc)
	if gap < 0 {
		gap = -gap
	}
	return gap > threshold
}

// ToModel stamps a Segment with its owning conversation and run for
// persistence.
func (s Segment) ToModel(conversationID, runID uuid.UUID) models.ConversationSegment {
	return models.ConversationSegment{
		ConversationID:    conversationID,
		RunID:             runID,
		SegmentIndex:      s.SegmentIndex,
		StartMessageIndex: s.StartMessageIndex,
		EndMessageIndex:   s.EndMessageIndex,
		MessageCount:      s.MessageCount,
		ContentText:       s.ContentText,
		ContentHash:       s.ContentHash,
	}
}
