// Package useroverride wraps the append-only UserOverride log so
// suggestion-writing code can check whether a candidate cluster has
// already been suppressed or rejected by a prior run's human review
// (spec §3, §4.11).
package useroverride

import (
	"context"
	"crypto/sha256"
	"sort"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/models"
)

// Store wraps *database.DB with the override decisions C11 needs.
type Store struct {
	db *database.DB
}

// New constructs a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Fingerprint is the SHA-256 of a cluster's sorted member segment ids,
// used to match a suggestion's identity across reruns independent of
// run id or ordering.
func Fingerprint(segmentIDs []uuid.UUID) [32]byte {
	sorted := append([]uuid.UUID{}, segmentIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	h := sha256.New()
	for _, id := range sorted {
		h.Write(id[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RecordAccept appends an accept event for the given suggestion,
// resolving it to resolvedProjectID.
func (s *Store) RecordAccept(ctx context.Context, suggestionID uuid.UUID, fingerprint [32]byte, resolvedProjectID uuid.UUID, note string) error {
	return s.db.CreateUserOverride(ctx, &models.UserOverride{
		Action:                models.OverrideAccept,
		SuggestionID:          suggestionID,
		ProjectID:             &resolvedProjectID,
		SegmentSetFingerprint: fingerprint,
		Note:                  note,
	})
}

// RecordReject appends a reject event for the given suggestion.
func (s *Store) RecordReject(ctx context.Context, suggestionID uuid.UUID, fingerprint [32]byte, note string) error {
	return s.db.CreateUserOverride(ctx, &models.UserOverride{
		Action:                models.OverrideReject,
		SuggestionID:          suggestionID,
		SegmentSetFingerprint: fingerprint,
		Note:                  note,
	})
}

// RecordSuppress appends a suppress event against a segment-set
// fingerprint directly — used to silence a recurring candidate cluster
// before a ProjectSuggestion row for it even exists.
func (s *Store) RecordSuppress(ctx context.Context, fingerprint [32]byte, note string) error {
	return s.db.CreateUserOverride(ctx, &models.UserOverride{
		Action:                models.OverrideSuppressSuggestion,
		SegmentSetFingerprint: fingerprint,
		Note:                  note,
	})
}

// IsSuppressed reports whether fingerprint's most recent override event
// is a suppress or reject — C11 filters candidate suggestions against
// this before emitting a new one (spec §4.11).
func (s *Store) IsSuppressed(ctx context.Context, fingerprint [32]byte) (bool, error) {
	events, err := s.db.ListOverridesByFingerprint(ctx, fingerprint)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}
	switch events[0].Action {
	case models.OverrideSuppressSuggestion, models.OverrideReject:
		return true, nil
	default:
		return false, nil
	}
}
