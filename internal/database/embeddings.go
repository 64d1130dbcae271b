package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// GetSegmentEmbedding is the L3 layer of internal/embeddings.Cache. It
// returns (nil, nil) on a plain miss so the caller can distinguish "not
// found" from a real error.
func (db *DB) GetSegmentEmbedding(ctx context.Context, segmentID uuid.UUID, model string) (*models.SegmentEmbedding, error) {
	query := `
		SELECT segment_id, embedding_model, vector_bytes, dimensions, source_content_hash, updated_at_utc
		FROM segment_embeddings WHERE segment_id = $1 AND embedding_model = $2
	`
	var e models.SegmentEmbedding
	var hashBytes []byte
	err := db.QueryRowContext(ctx, query, segmentID, model).Scan(
		&e.SegmentID, &e.EmbeddingModel, &e.VectorBytes, &e.Dimensions, &hashBytes, &e.UpdatedAtUtc,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	e.SourceContentHash = BytesToHash32(hashBytes)
	return &e, nil
}

// UpsertSegmentEmbedding writes or replaces the (segment, model) vector,
// unconditionally updating source_content_hash — callers have already
// decided the existing row (if any) is stale.
func (db *DB) UpsertSegmentEmbedding(ctx context.Context, e *models.SegmentEmbedding) error {
	query := `
		INSERT INTO segment_embeddings (segment_id, embedding_model, vector_bytes, dimensions, source_content_hash, updated_at_utc)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (segment_id, embedding_model) DO UPDATE
			SET vector_bytes = EXCLUDED.vector_bytes,
			    dimensions = EXCLUDED.dimensions,
			    source_content_hash = EXCLUDED.source_content_hash,
			    updated_at_utc = NOW()
		RETURNING updated_at_utc
	`
	err := db.QueryRowContext(ctx, query,
		e.SegmentID, e.EmbeddingModel, e.VectorBytes, e.Dimensions, e.SourceContentHash[:],
	).Scan(&e.UpdatedAtUtc)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}
