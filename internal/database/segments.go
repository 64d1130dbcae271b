package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateSegmentTx inserts one conversation segment inside tx. Unique per
// (conversation, segment_index); a duplicate inserts nothing and is
// returned as an errors.Conflict error, not treated as success.
func CreateSegmentTx(ctx context.Context, tx *sql.Tx, s *models.ConversationSegment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO conversation_segments
			(id, conversation_id, run_id, segment_index, start_message_index, end_message_index,
			 message_count, content_text, content_hash, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (conversation_id, segment_index) DO NOTHING
		RETURNING created_at_utc
	`
	err := tx.QueryRowContext(ctx, query,
		s.ID, s.ConversationID, s.RunID, s.SegmentIndex, s.StartMessageIndex, s.EndMessageIndex,
		s.MessageCount, s.ContentText, s.ContentHash[:],
	).Scan(&s.CreatedAtUtc)
	if err == sql.ErrNoRows {
		return errors.New(errors.Conflict, "segment already exists")
	}
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// GetConversationSegments returns every segment for a conversation under
// the given run, ordered by segment_index.
func (db *DB) GetConversationSegments(ctx context.Context, conversationID, runID uuid.UUID) ([]models.ConversationSegment, error) {
	query := `
		SELECT id, conversation_id, run_id, segment_index, start_message_index, end_message_index,
		       message_count, content_text, content_hash, created_at_utc
		FROM conversation_segments
		WHERE conversation_id = $1 AND run_id = $2
		ORDER BY segment_index ASC
	`
	rows, err := db.QueryContext(ctx, query, conversationID, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.ConversationSegment
	for rows.Next() {
		var s models.ConversationSegment
		var hashBytes []byte
		if err := rows.Scan(
			&s.ID, &s.ConversationID, &s.RunID, &s.SegmentIndex, &s.StartMessageIndex, &s.EndMessageIndex,
			&s.MessageCount, &s.ContentText, &hashBytes, &s.CreatedAtUtc,
		); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		s.ContentHash = BytesToHash32(hashBytes)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// GetRunSegments returns every segment stamped with runID across all
// conversations, ordered by conversation then segment_index — the scope
// a clustering or topic-extraction run draws its points from.
func (db *DB) GetRunSegments(ctx context.Context, runID uuid.UUID) ([]models.ConversationSegment, error) {
	query := `
		SELECT id, conversation_id, run_id, segment_index, start_message_index, end_message_index,
		       message_count, content_text, content_hash, created_at_utc
		FROM conversation_segments
		WHERE run_id = $1
		ORDER BY conversation_id ASC, segment_index ASC
	`
	rows, err := db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.ConversationSegment
	for rows.Next() {
		var s models.ConversationSegment
		var hashBytes []byte
		if err := rows.Scan(
			&s.ID, &s.ConversationID, &s.RunID, &s.SegmentIndex, &s.StartMessageIndex, &s.EndMessageIndex,
			&s.MessageCount, &s.ContentText, &hashBytes, &s.CreatedAtUtc,
		); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		s.ContentHash = BytesToHash32(hashBytes)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// PurgeRunSegments deletes every segment (and cascades to embeddings)
// stamped with runID.
func (db *DB) PurgeRunSegments(ctx context.Context, runID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM conversation_segments WHERE run_id = $1`, runID)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}
