package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// GetConversationByKey finds a conversation by its content-addressed key,
// returning (nil, nil) when no row matches — callers use this to decide
// between an insert and a dedup-link.
func (db *DB) GetConversationByKey(ctx context.Context, key [32]byte) (*models.Conversation, error) {
	query := `
		SELECT id, conversation_key, source_system, external_id, title, message_count,
		       first_message_at_utc, last_message_at_utc, created_at_utc
		FROM conversations WHERE conversation_key = $1
	`
	var c models.Conversation
	var title sql.NullString
	var keyBytes []byte
	err := db.QueryRowContext(ctx, query, key[:]).Scan(
		&c.ID, &keyBytes, &c.SourceSystem, &c.ExternalID, &title, &c.MessageCount,
		&c.FirstMessageAtUtc, &c.LastMessageAtUtc, &c.CreatedAtUtc,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	c.ConversationKey = BytesToHash32(keyBytes)
	c.Title = NullStringToString(title)
	return &c, nil
}

// CreateConversationTx inserts a brand-new conversation row inside tx.
func CreateConversationTx(ctx context.Context, tx *sql.Tx, c *models.Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO conversations
			(id, conversation_key, source_system, external_id, title, message_count,
			 first_message_at_utc, last_message_at_utc, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (conversation_key) DO NOTHING
		RETURNING created_at_utc
	`
	err := tx.QueryRowContext(ctx, query,
		c.ID, c.ConversationKey[:], c.SourceSystem, c.ExternalID, StringToNullString(c.Title),
		c.MessageCount, TimeToNullTime(c.FirstMessageAtUtc), TimeToNullTime(c.LastMessageAtUtc),
	).Scan(&c.CreatedAtUtc)
	if err == sql.ErrNoRows {
		// ON CONFLICT DO NOTHING produced no row: another writer raced us.
		return errors.New(errors.Conflict, "conversation already exists")
	}
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// LinkConversationArtifactTx records that an already-known conversation
// was also derived from artifactID, without touching its messages.
func LinkConversationArtifactTx(ctx context.Context, tx *sql.Tx, conversationID, artifactID uuid.UUID) error {
	query := `
		INSERT INTO conversation_artifact_maps (conversation_id, artifact_id, linked_at_utc)
		VALUES ($1, $2, NOW())
		ON CONFLICT (conversation_id, artifact_id) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, conversationID, artifactID)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// GetConversation fetches one conversation by id.
func (db *DB) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, conversation_key, source_system, external_id, title, message_count,
		       first_message_at_utc, last_message_at_utc, created_at_utc
		FROM conversations WHERE id = $1
	`
	var c models.Conversation
	var title sql.NullString
	var keyBytes []byte
	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &keyBytes, &c.SourceSystem, &c.ExternalID, &title, &c.MessageCount,
		&c.FirstMessageAtUtc, &c.LastMessageAtUtc, &c.CreatedAtUtc,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.NotFound, "conversation not found")
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	c.ConversationKey = BytesToHash32(keyBytes)
	c.Title = NullStringToString(title)
	return &c, nil
}

// ListAllConversations returns every conversation, ordered by creation
// time — the CLI's default scope for pipelines run over the whole corpus
// rather than a single window.
func (db *DB) ListAllConversations(ctx context.Context) ([]models.Conversation, error) {
	query := `
		SELECT id, conversation_key, source_system, external_id, title, message_count,
		       first_message_at_utc, last_message_at_utc, created_at_utc
		FROM conversations
		ORDER BY created_at_utc ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var title sql.NullString
		var keyBytes []byte
		if err := rows.Scan(
			&c.ID, &keyBytes, &c.SourceSystem, &c.ExternalID, &title, &c.MessageCount,
			&c.FirstMessageAtUtc, &c.LastMessageAtUtc, &c.CreatedAtUtc,
		); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		c.ConversationKey = BytesToHash32(keyBytes)
		c.Title = NullStringToString(title)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// ListConversationsInWindow returns conversations whose first message
// timestamp falls in [start, end) — used by the drift detector.
func (db *DB) ListConversationsInWindow(ctx context.Context, start, end time.Time) ([]models.Conversation, error) {
	query := `
		SELECT id, conversation_key, source_system, external_id, title, message_count,
		       first_message_at_utc, last_message_at_utc, created_at_utc
		FROM conversations
		WHERE first_message_at_utc >= $1 AND first_message_at_utc < $2
		ORDER BY first_message_at_utc ASC
	`
	rows, err := db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var title sql.NullString
		var keyBytes []byte
		if err := rows.Scan(
			&c.ID, &keyBytes, &c.SourceSystem, &c.ExternalID, &title, &c.MessageCount,
			&c.FirstMessageAtUtc, &c.LastMessageAtUtc, &c.CreatedAtUtc,
		); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		c.ConversationKey = BytesToHash32(keyBytes)
		c.Title = NullStringToString(title)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}
