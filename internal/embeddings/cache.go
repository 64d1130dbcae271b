// Package embeddings implements C4's three-tier embedding cache
// (in-process LRU -> Redis -> Postgres) in front of an external
// embedding-model call the core never owns.
package embeddings

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// cacheKey identifies one cached vector by the (segment, model) pair
// spec §4.4 specifies.
type cacheKey struct {
	SegmentID uuid.UUID
	Model     string
}

// l1Entry is what the in-process LRU actually stores: the vector plus the
// content hash it was computed against, so a stale hit can be detected
// without a round-trip to Redis or Postgres.
type l1Entry struct {
	Vector      []float32
	ContentHash [32]byte
}

// Cache implements the three-tier lookup. L1 and L2 are populated lazily
// on L3/compute hits; they are never the system of record.
type Cache struct {
	db  *database.DB
	l1  *lru.Cache[cacheKey, l1Entry]
	l2  *redis.Client // nil disables the Redis tier
}

// NewCache builds a cache with an L1 of l1Size entries. l2 may be nil.
func NewCache(db *database.DB, l1Size int, l2 *redis.Client) (*Cache, error) {
	if l1Size <= 0 {
		l1Size = 4096
	}
	l1, err := lru.New[cacheKey, l1Entry](l1Size)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal)
	}
	return &Cache{db: db, l1: l1, l2: l2}, nil
}

// ComputeFunc is the shape of the external embedding-model boundary —
// in production, HTTPModelClient.Embed; in tests, anything deterministic.
type ComputeFunc func(ctx context.Context, text string) ([]float32, error)

// GetOrCompute resolves a segment's embedding through L1 -> L2 -> L3,
// falling back to compute() on a full miss. A hit at any layer whose
// stored content hash doesn't match contentHash is treated as a miss and
// the stale entry is replaced once the fresh vector is known (spec §4.4).
func (c *Cache) GetOrCompute(ctx context.Context, segmentID uuid.UUID, model string, contentHash [32]byte, text string, compute ComputeFunc) ([]float32, error) {
	key := cacheKey{SegmentID: segmentID, Model: model}

	if entry, ok := c.l1.Get(key); ok && entry.ContentHash == contentHash {
		return entry.Vector, nil
	}

	if c.l2 != nil {
		if vec, hash, ok := c.getL2(ctx, key); ok && hash == contentHash {
			c.l1.Add(key, l1Entry{Vector: vec, ContentHash: hash})
			return vec, nil
		}
	}

	row, err := c.db.GetSegmentEmbedding(ctx, segmentID, model)
	if err != nil {
		return nil, err
	}
	if row != nil && row.SourceContentHash == contentHash {
		vec := bytesToFloat32LE(row.VectorBytes)
		c.l1.Add(key, l1Entry{Vector: vec, ContentHash: contentHash})
		c.setL2(ctx, key, vec, contentHash)
		return vec, nil
	}

	vec, err := compute(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal)
	}

	bytes := float32ToBytesLE(vec)
	err = c.db.UpsertSegmentEmbedding(ctx, &models.SegmentEmbedding{
		SegmentID:         segmentID,
		EmbeddingModel:    model,
		VectorBytes:       bytes,
		Dimensions:        len(bytes) / 4,
		SourceContentHash: contentHash,
	})
	if err != nil {
		return nil, err
	}

	c.l1.Add(key, l1Entry{Vector: vec, ContentHash: contentHash})
	c.setL2(ctx, key, vec, contentHash)

	return vec, nil
}

func (c *Cache) redisKey(k cacheKey) string {
	return fmt.Sprintf("embedding:%s:%s", k.SegmentID, k.Model)
}

func (c *Cache) getL2(ctx context.Context, k cacheKey) ([]float32, [32]byte, bool) {
	raw, err := c.l2.Get(ctx, c.redisKey(k)).Bytes()
	if err != nil {
		return nil, [32]byte{}, false
	}
	if len(raw) < 32 {
		return nil, [32]byte{}, false
	}
	var hash [32]byte
	copy(hash[:], raw[:32])
	return bytesToFloat32LE(raw[32:]), hash, true
}

func (c *Cache) setL2(ctx context.Context, k cacheKey, vec []float32, hash [32]byte) {
	payload := append(append([]byte{}, hash[:]...), float32ToBytesLE(vec)...)
	_ = c.l2.Set(ctx, c.redisKey(k), payload, 0).Err()
}

// float32ToBytesLE packs a vector as raw little-endian float32 bytes,
// the wire format spec §4.4/§6 mandates.
func float32ToBytesLE(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func bytesToFloat32LE(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
