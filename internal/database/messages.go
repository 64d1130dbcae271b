package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateMessageTx inserts one message row inside tx. A unique-index hit on
// (conversation, role, sequence, content_hash) is treated as Conflict,
// matching spec §7.
func CreateMessageTx(ctx context.Context, tx *sql.Tx, m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `
		INSERT INTO messages
			(id, conversation_id, role, sequence_index, content, content_hash, timestamp_utc, source_artifact_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (conversation_id, role, sequence_index, content_hash) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.Role, m.SequenceIndex, m.Content, m.ContentHash[:],
		TimeToNullTime(m.TimestampUtc), m.SourceArtifact,
	)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	if rows == 0 {
		return errors.New(errors.Conflict, "message already exists")
	}
	return nil
}

// GetConversationMessages returns every message for a conversation,
// ordered by sequence_index.
func (db *DB) GetConversationMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, role, sequence_index, content, content_hash,
		       timestamp_utc, source_artifact_id
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sequence_index ASC
	`
	rows, err := db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var hashBytes []byte
		var ts sql.NullTime
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Role, &m.SequenceIndex, &m.Content, &hashBytes,
			&ts, &m.SourceArtifact,
		); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		m.ContentHash = BytesToHash32(hashBytes)
		m.TimestampUtc = NullTimeToTime(ts)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// GetMessageCount returns the number of persisted messages for a conversation.
func (db *DB) GetMessageCount(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.DatabaseError)
	}
	return count, nil
}
