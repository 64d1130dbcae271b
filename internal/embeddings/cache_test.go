package embeddings

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32LERoundtrip(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.14159, -100.0}
	b := float32ToBytesLE(vec)
	out := bytesToFloat32LE(b)
	assert.Equal(t, vec, out)
}

func TestFloat32ToBytesLE_EmptyVector(t *testing.T) {
	assert.Empty(t, float32ToBytesLE(nil))
}

func TestGetOrCompute_L1HitNeverCallsCompute(t *testing.T) {
	cache, err := NewCache(nil, 16, nil)
	require.NoError(t, err)

	segmentID := uuid.New()
	hash := sha256.Sum256([]byte("hello"))
	vec := []float32{1, 2, 3}
	cache.l1.Add(cacheKey{SegmentID: segmentID, Model: "m1"}, l1Entry{Vector: vec, ContentHash: hash})

	called := false
	compute := func(ctx context.Context, text string) ([]float32, error) {
		called = true
		return nil, nil
	}

	got, err := cache.GetOrCompute(context.Background(), segmentID, "m1", hash, "hello", compute)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
	assert.False(t, called, "a fresh L1 hit must not invoke compute")
}

func TestL1Entry_SeededStaleHashDiffersFromFreshHash(t *testing.T) {
	cache, err := NewCache(nil, 16, nil)
	require.NoError(t, err)

	segmentID := uuid.New()
	staleHash := sha256.Sum256([]byte("old content"))
	freshHash := sha256.Sum256([]byte("new content"))
	cache.l1.Add(cacheKey{SegmentID: segmentID, Model: "m1"}, l1Entry{Vector: []float32{9, 9, 9}, ContentHash: staleHash})

	_, ok := cache.l1.Get(cacheKey{SegmentID: segmentID, Model: "m1"})
	require.True(t, ok)

	entry, _ := cache.l1.Get(cacheKey{SegmentID: segmentID, Model: "m1"})
	assert.NotEqual(t, freshHash, entry.ContentHash, "the pre-seeded entry should not already match the fresh hash")
}
