// Package ledger implements C10's inference-run ledger (spec §4.10): run
// lifecycle plus feature-config hashing, wrapping internal/database's
// already-transactional run CRUD.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/models"
)

// Ledger wraps *database.DB and implements exactly spec §4.10's contract.
type Ledger struct {
	db *database.DB
}

// New constructs a Ledger over db.
func New(db *database.DB) *Ledger {
	return &Ledger{db: db}
}

// Start records a new Running run.
func (l *Ledger) Start(ctx context.Context, runType models.RunType, modelName, modelVersion string, featureConfigHash [32]byte, inputScope, inputDescription string) (*models.InferenceRun, error) {
	run := &models.InferenceRun{
		RunType:           runType,
		ModelName:         modelName,
		ModelVersion:      modelVersion,
		FeatureConfigHash: featureConfigHash,
		InputScope:        inputScope,
		InputDescription:  inputDescription,
	}
	if err := l.db.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Complete transitions runID to Completed with the given metrics payload.
func (l *Ledger) Complete(ctx context.Context, runID uuid.UUID, metricsJSON string) error {
	return l.db.CompleteRun(ctx, runID, metricsJSON)
}

// Fail transitions runID to Failed, folding reason into its metrics.
func (l *Ledger) Fail(ctx context.Context, runID uuid.UUID, reason string) error {
	return l.db.FailRun(ctx, runID, reason)
}

// Get fetches one run by id.
func (l *Ledger) Get(ctx context.Context, runID uuid.UUID) (*models.InferenceRun, error) {
	return l.db.GetRun(ctx, runID)
}

// ListRecent returns the most recent runs, optionally filtered by runType.
func (l *Ledger) ListRecent(ctx context.Context, runType models.RunType, limit int) ([]models.InferenceRun, error) {
	return l.db.ListRecentRuns(ctx, string(runType), limit)
}

// Purge removes every derived row stamped with runID.
func (l *Ledger) Purge(ctx context.Context, runID uuid.UUID) error {
	return l.db.PurgeRun(ctx, runID)
}

// HashConfig computes the canonical-JSON SHA-256 of v, so two logically
// identical configs always hash identically regardless of field or map
// key order (spec §4.10). Every value, struct or map, is round-tripped
// through JSON into generic maps whose keys are recursively sorted
// before hashing.
func HashConfig(v interface{}) [32]byte {
	canon := canonicalize(v)
	b, err := json.Marshal(canon)
	if err != nil {
		return sha256.Sum256(nil)
	}
	return sha256.Sum256(b)
}

// canonicalize round-trips v through a generic decode so map keys at
// every level sort deterministically before re-marshaling.
func canonicalize(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil
	}
	return sortKeys(generic)
}

func sortKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]keyValue, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, keyValue{Key: k, Value: sortKeys(t[k])})
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortKeys(e)
		}
		return out
	default:
		return t
	}
}

// keyValue re-encodes a sorted map entry positionally so json.Marshal
// preserves the sorted order instead of re-sorting a Go map.
type keyValue struct {
	Key   string
	Value interface{}
}

func (kv keyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{kv.Key, kv.Value})
}
