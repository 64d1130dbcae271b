package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateConversationSimilarityTx inserts one canonicalized (A<B) edge
// inside tx. Unique per (run, A, B); a duplicate inserts nothing and is
// returned as an errors.Conflict error.
func CreateConversationSimilarityTx(ctx context.Context, tx *sql.Tx, s *models.ConversationSimilarity) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_similarities (id, run_id, conversation_id_a, conversation_id_b, score, method)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, conversation_id_a, conversation_id_b) DO NOTHING
	`, s.ID, s.RunID, s.ConversationIDA, s.ConversationIDB, s.Score, s.Method)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	if rows == 0 {
		return errors.New(errors.Conflict, "similarity edge already exists")
	}
	return nil
}

// ListRunSimilarities returns every edge written by one run, ordered by
// descending score then canonically by endpoint ids.
func (db *DB) ListRunSimilarities(ctx context.Context, runID uuid.UUID) ([]models.ConversationSimilarity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, conversation_id_a, conversation_id_b, score, method
		FROM conversation_similarities
		WHERE run_id = $1
		ORDER BY score DESC, conversation_id_a ASC, conversation_id_b ASC
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.ConversationSimilarity
	for rows.Next() {
		var s models.ConversationSimilarity
		if err := rows.Scan(&s.ID, &s.RunID, &s.ConversationIDA, &s.ConversationIDB, &s.Score, &s.Method); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}
