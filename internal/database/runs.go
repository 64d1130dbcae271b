package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateRun inserts a new InferenceRun with Status=Running.
func (db *DB) CreateRun(ctx context.Context, r *models.InferenceRun) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
		INSERT INTO inference_runs
			(id, run_type, model_name, model_version, feature_config_hash, input_scope,
			 input_description, status, started_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING started_at_utc
	`
	err := db.QueryRowContext(ctx, query,
		r.ID, r.RunType, r.ModelName, r.ModelVersion, r.FeatureConfigHash[:], r.InputScope,
		StringToNullString(r.InputDescription), models.RunStatusRunning,
	).Scan(&r.StartedAtUtc)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	r.Status = models.RunStatusRunning
	return nil
}

// CompleteRun transitions a run to Completed, optionally storing metrics.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, metricsJSON string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE inference_runs
		SET status = $2, completed_at_utc = NOW(), metrics_json = $3
		WHERE id = $1
	`, runID, models.RunStatusCompleted, StringToNullString(metricsJSON))
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// FailRun transitions a run to Failed, folding errorMessage into metrics_json.
func (db *DB) FailRun(ctx context.Context, runID uuid.UUID, metricsJSON string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE inference_runs
		SET status = $2, completed_at_utc = NOW(), metrics_json = $3
		WHERE id = $1
	`, runID, models.RunStatusFailed, StringToNullString(metricsJSON))
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// GetRun fetches one run by id.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*models.InferenceRun, error) {
	query := `
		SELECT id, run_type, model_name, model_version, feature_config_hash, input_scope,
		       input_description, status, started_at_utc, completed_at_utc, metrics_json
		FROM inference_runs WHERE id = $1
	`
	var r models.InferenceRun
	var inputDesc, metrics sql.NullString
	var hashBytes []byte
	err := db.QueryRowContext(ctx, query, runID).Scan(
		&r.ID, &r.RunType, &r.ModelName, &r.ModelVersion, &hashBytes, &r.InputScope,
		&inputDesc, &r.Status, &r.StartedAtUtc, &r.CompletedAtUtc, &metrics,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.NotFound, "inference run not found")
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	r.FeatureConfigHash = BytesToHash32(hashBytes)
	r.InputDescription = NullStringToString(inputDesc)
	r.MetricsJson = NullStringToString(metrics)
	return &r, nil
}

// ListRecentRuns returns the most recent runs, optionally filtered by
// runType, ordered by StartedAtUtc descending.
func (db *DB) ListRecentRuns(ctx context.Context, runType string, limit int) ([]models.InferenceRun, error) {
	var rows *sql.Rows
	var err error
	if runType != "" {
		rows, err = db.QueryContext(ctx, `
			SELECT id, run_type, model_name, model_version, feature_config_hash, input_scope,
			       input_description, status, started_at_utc, completed_at_utc, metrics_json
			FROM inference_runs WHERE run_type = $1
			ORDER BY started_at_utc DESC LIMIT $2
		`, runType, limit)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT id, run_type, model_name, model_version, feature_config_hash, input_scope,
			       input_description, status, started_at_utc, completed_at_utc, metrics_json
			FROM inference_runs
			ORDER BY started_at_utc DESC LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	defer rows.Close()

	var out []models.InferenceRun
	for rows.Next() {
		var r models.InferenceRun
		var inputDesc, metrics sql.NullString
		var hashBytes []byte
		if err := rows.Scan(
			&r.ID, &r.RunType, &r.ModelName, &r.ModelVersion, &hashBytes, &r.InputScope,
			&inputDesc, &r.Status, &r.StartedAtUtc, &r.CompletedAtUtc, &metrics,
		); err != nil {
			return nil, errors.Wrap(err, errors.DatabaseError)
		}
		r.FeatureConfigHash = BytesToHash32(hashBytes)
		r.InputDescription = NullStringToString(inputDesc)
		r.MetricsJson = NullStringToString(metrics)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return out, nil
}

// PurgeRun deletes every derived row stamped with runID, across every
// aggregate table, without touching raw/silver data. Spec §3's ownership
// model: a run owns its derived rows only.
func (db *DB) PurgeRun(ctx context.Context, runID uuid.UUID) error {
	return db.Transaction(func(tx *sql.Tx) error {
		tables := []string{
			"conversation_similarities",
			"project_drift_metrics",
			"conversation_topics",
			"topics",
			"project_suggestions",
			"conversation_segments", // cascades to segment_embeddings
		}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = $1", runID); err != nil {
				return errors.Wrap(err, errors.DatabaseError)
			}
		}
		return nil
	})
}
