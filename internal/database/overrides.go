package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateUserOverride appends one event to the override log. The log is
// append-only: overrides are never updated or deleted, only superseded by
// a later event with the same fingerprint.
func (db *DB) CreateUserOverride(ctx context.Context, o *models.UserOverride) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	var suggestionID interface{}
	if o.SuggestionID != uuid.Nil {
		suggestionID = o.SuggestionID
	}
	var projectID interface{}
	if o.ProjectID != nil {
		projectID = *o.ProjectID
	}
	query := `
		INSERT INTO user_overrides (id, action, suggestion_id, project_id, segment_set_fingerprint, note, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at_utc
	`
	err := db.QueryRowContext(ctx, query,
		o.ID, o.Action, suggestionID, projectID, o.SegmentSetFingerprint[:], StringToNullString(o.Note),
	).Scan(&o.CreatedAtUtc)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// ListOverridesByFingerprint returns every override event recorded
// against a segment-set fingerprint, most recent first — used to decide
// whether a candidate suggestion should be suppressed.
func (db *DB) ListOverridesByFingerprint(ctx context.Context, fingerprint [32]byte) ([]models.UserOverride, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, action, suggestion_id, project_id, segment_set_fingerprint, note, created_at_utc
		FROM user_overrides
		WHERE segment_set_fingerprint = $1
		ORDER BY created_at_utc DESC
	`, fingerprint[:])
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.UserOverride
	for rows.Next() {
		var o models.UserOverride
		var suggestionID uuid.NullUUID
		var projectID uuid.NullUUID
		var note sql.NullString
		var fpBytes []byte
		if err := rows.Scan(&o.ID, &o.Action, &suggestionID, &projectID, &fpBytes, &note, &o.CreatedAtUtc); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		if suggestionID.Valid {
			o.SuggestionID = suggestionID.UUID
		}
		if projectID.Valid {
			o.ProjectID = &projectID.UUID
		}
		o.SegmentSetFingerprint = BytesToHash32(fpBytes)
		o.Note = NullStringToString(note)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}
