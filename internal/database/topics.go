package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateTopicTx inserts one placeholder-labeled topic inside tx.
func CreateTopicTx(ctx context.Context, tx *sql.Tx, t *models.Topic) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO topics (id, run_id, topic_index, label, keywords)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.RunID, t.Index, t.Label, pq.Array(t.Keywords))
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// CreateConversationTopicTx inserts one per-(conversation, topic) score.
func CreateConversationTopicTx(ctx context.Context, tx *sql.Tx, ct *models.ConversationTopic) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_topics (conversation_id, topic_id, run_id, score)
		VALUES ($1, $2, $3, $4)
	`, ct.ConversationID, ct.TopicID, ct.RunID, ct.Score)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// GetConversationTopicScores returns the per-topic score distribution for
// one conversation under one run, keyed by topic id — used by the drift
// detector to build D_curr/D_prev.
func (db *DB) GetConversationTopicScores(ctx context.Context, runID uuid.UUID, conversationID uuid.UUID) (map[uuid.UUID]float64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT topic_id, score FROM conversation_topics WHERE run_id = $1 AND conversation_id = $2
	`, runID, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]float64)
	for rows.Next() {
		var topicID uuid.UUID
		var score float64
		if err := rows.Scan(&topicID, &score); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		out[topicID] = score
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// ListRunTopics returns every topic produced by one run, ordered by index.
func (db *DB) ListRunTopics(ctx context.Context, runID uuid.UUID) ([]models.Topic, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, topic_index, label, keywords FROM topics WHERE run_id = $1 ORDER BY topic_index ASC
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.RunID, &t.Index, &t.Label, pq.Array(&t.Keywords)); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}
