// Package database is ChatLake's hand-written SQL persistence layer: one
// DB wrapper plus a CRUD file per aggregate. No ORM, matching the
// teacher's query-per-method style.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/chatlake/chatlake/internal/config"
	"github.com/chatlake/chatlake/internal/errors"
)

// DB holds the database connection pool.
type DB struct {
	*sql.DB
}

// NewConnection opens and pings a Postgres connection pool per cfg.
func NewConnection(cfg *config.Config) (*DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New(errors.InvalidConfiguration, "database.url is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.New(errors.DatabaseError, fmt.Sprintf("failed to open database connection: %v", err))
	}

	maxConns := cfg.Database.MaxConnections
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var lastErr error
	for i := 0; i < 3; i++ {
		if err := db.PingContext(ctx); err != nil {
			lastErr = err
			slog.Warn("database connection attempt failed", "attempt", i+1, "error", err)
			if i < 2 {
				time.Sleep(2 * time.Second)
				continue
			}
		} else {
			lastErr = nil
			break
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, errors.New(errors.DatabaseError, fmt.Sprintf("failed to connect to database after 3 attempts: %v", lastErr))
	}

	slog.Info("connected to PostgreSQL database")
	return &DB{db}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// Healthy pings the database; used by the CLI's --check-db flag.
func (db *DB) Healthy(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	return nil
}

// Transaction runs fn inside a single transaction, rolling back on error
// or panic. Spec §5 requires one transaction per logical write step.
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}

	return nil
}

// NullStringToString converts a possibly-absent SQL string to "".
func NullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeToTime converts a possibly-absent SQL time to a nil pointer.
func NullTimeToTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// StringToNullString converts "" to an absent SQL string.
func StringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// TimeToNullTime converts a nil pointer to an absent SQL time.
func TimeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// BytesToHash32 copies a variable-length column read back into a fixed
// 32-byte hash, or the zero hash if the column was empty.
func BytesToHash32(b []byte) [32]byte {
	var h [32]byte
	copy(h[:], b)
	return h
}
