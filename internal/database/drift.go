package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateDriftMetric persists one windowed drift measurement.
func (db *DB) CreateDriftMetric(ctx context.Context, m *models.ProjectDriftMetric) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO project_drift_metrics (id, run_id, project_id, window_start, window_end, drift_score, details_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.RunID, m.ProjectID, m.WindowStart, m.WindowEnd, m.DriftScore, StringToNullString(m.DetailsJson))
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// ListProjectDriftMetrics returns a project's drift history ordered by
// window start, ascending.
func (db *DB) ListProjectDriftMetrics(ctx context.Context, projectID uuid.UUID) ([]models.ProjectDriftMetric, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, project_id, window_start, window_end, drift_score, details_json
		FROM project_drift_metrics
		WHERE project_id = $1
		ORDER BY window_start ASC
	`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.ProjectDriftMetric
	for rows.Next() {
		var m models.ProjectDriftMetric
		var details sql.NullString
		if err := rows.Scan(&m.ID, &m.RunID, &m.ProjectID, &m.WindowStart, &m.WindowEnd, &m.DriftScore, &details); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		m.DetailsJson = NullStringToString(details)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// WindowBounds computes the [start, end) bounds for the preceding window
// of equal length, given the current window.
func WindowBounds(currStart, currEnd time.Time) (prevStart, prevEnd time.Time) {
	length := currEnd.Sub(currStart)
	return currStart.Add(-length), currStart
}
