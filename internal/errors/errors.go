// Package errors defines ChatLake's structured error taxonomy.
//
// Every error surfaced by the core carries a Code drawn from the taxonomy
// so callers (the CLI, the ledger) can classify a failure without
// string-matching: per-item failures aggregate into a pipeline's result,
// per-run failures flip the owning InferenceRun to Failed.
package errors

import (
	"fmt"
	"time"
)

// Code is a stable, taxonomy-level error classification.
type Code string

const (
	// InputMalformed: a raw artifact could not be parsed at the outer level.
	InputMalformed Code = "INPUT_MALFORMED"
	// ConversationSkipped: one conversation violated structural expectations.
	ConversationSkipped Code = "CONVERSATION_SKIPPED"
	// Conflict: a unique-index violation on an idempotent upsert. Treated as success.
	Conflict Code = "CONFLICT"
	// ResourceExhausted: out of memory, or too few points for a given algorithm phase.
	ResourceExhausted Code = "RESOURCE_EXHAUSTED"
	// Cancelled: cooperative cancellation during a long-running operation.
	Cancelled Code = "CANCELLED"
	// Internal: any unexpected condition.
	Internal Code = "INTERNAL"
	// DatabaseError: a persistence-layer operation failed.
	DatabaseError Code = "DATABASE_ERROR"
	// NotFound: a requested row does not exist.
	NotFound Code = "NOT_FOUND"
	// InvalidConfiguration: pipeline or startup configuration failed validation.
	InvalidConfiguration Code = "INVALID_CONFIGURATION"
)

// AppError is ChatLake's structured error type.
type AppError struct {
	Code      Code        `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the operation that produced this error might
// reasonably be retried (transient resource pressure), as opposed to a
// structural problem that will recur deterministically.
func (e *AppError) Retryable() bool {
	return e.Code == ResourceExhausted || e.Code == DatabaseError
}

// New creates an AppError with no extra context.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Timestamp: time.Now()}
}

// NewWithDetails creates an AppError carrying structured context.
func NewWithDetails(code Code, message string, details interface{}) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Timestamp: time.Now()}
}

// Wrap converts any error into an AppError, preserving one already of that type.
func Wrap(err error, code Code) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(code, err.Error())
}

// As reports whether err is an *AppError, returning it for inspection.
func As(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// IsCode reports whether err is an *AppError carrying the given code.
func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
