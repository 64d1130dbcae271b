package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// parseUUIDArrayJSON decodes a JSON array of UUID strings, the storage
// shape of ProjectSuggestion.ConversationIdsJson/SegmentIdsJson.
func parseUUIDArrayJSON(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	var strs []string
	if err := json.Unmarshal([]byte(raw), &strs); err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// CreateProjectSuggestion inserts one Pending suggestion row.
func (db *DB) CreateProjectSuggestion(ctx context.Context, s *models.ProjectSuggestion) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO project_suggestions
			(id, run_id, suggested_project_key, suggested_name, summary, confidence, status,
			 segment_ids_json, conversation_ids_json, unique_conversation_count, resolved_project_id, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING created_at_utc
	`
	var resolvedProject interface{}
	if s.ResolvedProjectID != nil {
		resolvedProject = *s.ResolvedProjectID
	}
	err := db.QueryRowContext(ctx, query,
		s.ID, s.RunID, s.SuggestedProjectKey, s.SuggestedName, StringToNullString(s.Summary),
		s.Confidence, s.Status, s.SegmentIdsJson, s.ConversationIdsJson, s.UniqueConversationCount,
		resolvedProject,
	).Scan(&s.CreatedAtUtc)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// UpdateSuggestionStatus transitions a suggestion Pending -> {Accepted,
// Rejected, Merged}, optionally linking a resolved project.
func (db *DB) UpdateSuggestionStatus(ctx context.Context, id uuid.UUID, status string, resolvedProjectID *uuid.UUID) error {
	var resolved interface{}
	if resolvedProjectID != nil {
		resolved = *resolvedProjectID
	}
	_, err := db.ExecContext(ctx, `
		UPDATE project_suggestions SET status = $2, resolved_project_id = $3 WHERE id = $1
	`, id, status, resolved)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// GetProjectSuggestion fetches one suggestion by id.
func (db *DB) GetProjectSuggestion(ctx context.Context, id uuid.UUID) (*models.ProjectSuggestion, error) {
	query := `
		SELECT id, run_id, suggested_project_key, suggested_name, summary, confidence, status,
		       segment_ids_json, conversation_ids_json, unique_conversation_count, resolved_project_id, created_at_utc
		FROM project_suggestions WHERE id = $1
	`
	var s models.ProjectSuggestion
	var summary sql.NullString
	var resolvedProject uuid.NullUUID
	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.RunID, &s.SuggestedProjectKey, &s.SuggestedName, &summary, &s.Confidence, &s.Status,
		&s.SegmentIdsJson, &s.ConversationIdsJson, &s.UniqueConversationCount, &resolvedProject, &s.CreatedAtUtc,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.NotFound, "project suggestion not found")
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	s.Summary = NullStringToString(summary)
	if resolvedProject.Valid {
		s.ResolvedProjectID = &resolvedProject.UUID
	}
	return &s, nil
}

// GetConversationIDsForProject flattens the conversation_ids_json of every
// Accepted suggestion resolved to projectID — the drift detector's source
// of project membership, since the core treats "project" as an external
// concept materialized only through accepted suggestions.
func (db *DB) GetConversationIDsForProject(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT conversation_ids_json FROM project_suggestions
		WHERE resolved_project_id = $1 AND status = 'Accepted'
	`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		ids, err := parseUUIDArrayJSON(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}
