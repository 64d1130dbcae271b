package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
)

// CreateImportBatch starts a new batch row with Status=Running.
func (db *DB) CreateImportBatch(ctx context.Context, sourceSystem, sourceVersion string) (*models.ImportBatch, error) {
	query := `
		INSERT INTO import_batches (source_system, source_version, status, started_at_utc)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, source_system, source_version, status, conversation_count,
		          message_count, failure_count, started_at_utc, completed_at_utc, error_message
	`

	var b models.ImportBatch
	var errMsg sql.NullString
	err := db.QueryRowContext(ctx, query, sourceSystem, sourceVersion, models.ImportBatchRunning).Scan(
		&b.ID, &b.SourceSystem, &b.SourceVersion, &b.Status,
		&b.ConversationCount, &b.MessageCount, &b.FailureCount,
		&b.StartedAtUtc, &b.CompletedAtUtc, &errMsg,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	b.ErrorMessage = NullStringToString(errMsg)
	return &b, nil
}

// IncrementBatchCounters atomically bumps a batch's progress counters.
func (db *DB) IncrementBatchCounters(ctx context.Context, batchID uuid.UUID, conversations, messages, failures int) error {
	query := `
		UPDATE import_batches
		SET conversation_count = conversation_count + $2,
		    message_count = message_count + $3,
		    failure_count = failure_count + $4
		WHERE id = $1
	`
	_, err := db.ExecContext(ctx, query, batchID, conversations, messages, failures)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// CompleteImportBatch transitions a batch to Completed.
func (db *DB) CompleteImportBatch(ctx context.Context, batchID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
		UPDATE import_batches SET status = $2, completed_at_utc = NOW() WHERE id = $1
	`, batchID, models.ImportBatchCompleted)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// FailImportBatch transitions a batch to Failed with an error message.
func (db *DB) FailImportBatch(ctx context.Context, batchID uuid.UUID, message string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE import_batches SET status = $2, completed_at_utc = NOW(), error_message = $3 WHERE id = $1
	`, batchID, models.ImportBatchFailed, message)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// GetImportBatch fetches one batch by id.
func (db *DB) GetImportBatch(ctx context.Context, batchID uuid.UUID) (*models.ImportBatch, error) {
	query := `
		SELECT id, source_system, source_version, status, conversation_count,
		       message_count, failure_count, started_at_utc, completed_at_utc, error_message
		FROM import_batches WHERE id = $1
	`
	var b models.ImportBatch
	var errMsg sql.NullString
	err := db.QueryRowContext(ctx, query, batchID).Scan(
		&b.ID, &b.SourceSystem, &b.SourceVersion, &b.Status,
		&b.ConversationCount, &b.MessageCount, &b.FailureCount,
		&b.StartedAtUtc, &b.CompletedAtUtc, &errMsg,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.NotFound, "import batch not found")
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	b.ErrorMessage = NullStringToString(errMsg)
	return &b, nil
}

// CreateRawArtifact inserts an immutable artifact row under a batch.
func (db *DB) CreateRawArtifact(ctx context.Context, a *models.RawArtifact) error {
	query := `
		INSERT INTO raw_artifacts (id, batch_id, artifact_type, name, content_type, content_sha256, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at_utc
	`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := db.QueryRowContext(ctx, query, a.ID, a.BatchID, a.ArtifactType, a.Name, a.ContentType, a.ContentSha256[:]).
		Scan(&a.CreatedAtUtc)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// CreateParsingFailure records a structured per-artifact failure.
func (db *DB) CreateParsingFailure(ctx context.Context, f *models.ParsingFailure) error {
	query := `
		INSERT INTO parsing_failures (id, artifact_id, external_id, reason, details_json, occurred_at_utc)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING occurred_at_utc
	`
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := db.QueryRowContext(ctx, query, f.ID, f.ArtifactID, f.ExternalID, f.Reason, f.DetailsJson).
		Scan(&f.OccurredAtUtc)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}
