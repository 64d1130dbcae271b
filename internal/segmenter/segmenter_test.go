package segmenter

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlake/chatlake/internal/models"
)

func msg(role models.Role, content string, ts *time.Time) models.Message {
	return models.Message{ID: uuid.New(), Role: role, Content: content, TimestampUtc: ts}
}

func assertCoverage(t *testing.T, segments []Segment, messageCount int) {
	t.Helper()
	require.NotEmpty(t, segments)

	want := 0
	for i, s := range segments {
		assert.Equal(t, want, s.StartMessageIndex, "segment %d should start where the previous one ended", i)
		assert.GreaterOrEqual(t, s.EndMessageIndex, s.StartMessageIndex)
		assert.Equal(t, s.EndMessageIndex-s.StartMessageIndex+1, s.MessageCount)
		want = s.EndMessageIndex + 1
	}
	assert.Equal(t, messageCount, want, "segments must cover [0, messageCount) without gap or overlap")
}

func TestSegment_EmptyConversationYieldsNoSegments(t *testing.T) {
	assert.Nil(t, Segment(nil, DefaultOptions()))
}

func TestSegment_CoversEveryMessageExactlyOnce(t *testing.T) {
	var messages []models.Message
	for i := 0; i < 47; i++ {
		messages = append(messages, msg(models.RoleUser, "hello there", nil))
	}
	segments := Segment(messages, DefaultOptions())
	assertCoverage(t, segments, len(messages))
}

func TestSegment_RespectsMaxMessagesPerSegment(t *testing.T) {
	var messages []models.Message
	for i := 0; i < 25; i++ {
		messages = append(messages, msg(models.RoleUser, "x", nil))
	}
	opts := Options{MaxMessagesPerSegment: 5, MaxCharsPerSegment: 0}
	segments := Segment(messages, opts)

	assertCoverage(t, segments, len(messages))
	for _, s := range segments[:len(segments)-1] {
		assert.Equal(t, 5, s.MessageCount)
	}
}

func TestSegment_RespectsMaxCharsPerSegment(t *testing.T) {
	var messages []models.Message
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	for i := 0; i < 10; i++ {
		messages = append(messages, msg(models.RoleUser, string(long), nil))
	}
	opts := Options{MaxMessagesPerSegment: 1000, MaxCharsPerSegment: 150}
	segments := Segment(messages, opts)

	assertCoverage(t, segments, len(messages))
	assert.Greater(t, len(segments), 1)
}

func TestSegment_TimestampGapStartsNewSegment(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	tFar := t1.Add(time.Hour)

	messages := []models.Message{
		msg(models.RoleUser, "a", &t0),
		msg(models.RoleAssistant, "b", &t1),
		msg(models.RoleUser, "c", &tFar),
	}
	opts := Options{MaxMessagesPerSegment: 1000, MaxCharsPerSegment: 0, MaxTimestampGap: 30 * time.Minute}
	segments := Segment(messages, opts)

	assertCoverage(t, segments, len(messages))
	require.Len(t, segments, 2)
	assert.Equal(t, 1, segments[0].EndMessageIndex)
	assert.Equal(t, 2, segments[1].StartMessageIndex)
}

func TestSegment_MissingTimestampNeverTriggersGapBoundary(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	messages := []models.Message{
		msg(models.RoleUser, "a", &t0),
		msg(models.RoleAssistant, "b", nil),
		msg(models.RoleUser, "c", nil),
	}
	opts := Options{MaxMessagesPerSegment: 1000, MaxCharsPerSegment: 0, MaxTimestampGap: time.Minute}
	segments := Segment(messages, opts)

	assertCoverage(t, segments, len(messages))
	assert.Len(t, segments, 1)
}

func TestSegment_ContentHashIsDeterministic(t *testing.T) {
	messages := []models.Message{
		msg(models.RoleUser, "hello", nil),
		msg(models.RoleAssistant, "world", nil),
	}
	s1 := Segment(messages, DefaultOptions())
	s2 := Segment(messages, DefaultOptions())

	require.Len(t, s1, 1)
	require.Len(t, s2, 1)
	assert.Equal(t, s1[0].ContentHash, s2[0].ContentHash)
}
