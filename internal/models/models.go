// Package models holds every persisted entity of the ChatLake core as a
// plain, db-tagged struct. There is no ORM: internal/database hand-writes
// the SQL for each one.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportBatch is the unit of ingestion for one raw artifact upload.
type ImportBatch struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	SourceSystem      string     `json:"source_system" db:"source_system"`
	SourceVersion     string     `json:"source_version" db:"source_version"`
	Status            string     `json:"status" db:"status"` // Running | Completed | Failed
	ConversationCount int        `json:"conversation_count" db:"conversation_count"`
	MessageCount      int        `json:"message_count" db:"message_count"`
	FailureCount      int        `json:"failure_count" db:"failure_count"`
	StartedAtUtc      time.Time  `json:"started_at_utc" db:"started_at_utc"`
	CompletedAtUtc    *time.Time `json:"completed_at_utc,omitempty" db:"completed_at_utc"`
	ErrorMessage      string     `json:"error_message,omitempty" db:"error_message"`
}

const (
	ImportBatchRunning   = "Running"
	ImportBatchCompleted = "Completed"
	ImportBatchFailed    = "Failed"
)

// RawArtifact is the immutable blob a batch was built from. Bytes never
// mutate once the row exists.
type RawArtifact struct {
	ID            uuid.UUID `json:"id" db:"id"`
	BatchID       uuid.UUID `json:"batch_id" db:"batch_id"`
	ArtifactType  string    `json:"artifact_type" db:"artifact_type"`
	Name          string    `json:"name" db:"name"`
	ContentType   string    `json:"content_type" db:"content_type"`
	ContentSha256 [32]byte  `json:"content_sha256" db:"content_sha256"`
	CreatedAtUtc  time.Time `json:"created_at_utc" db:"created_at_utc"`
}

// Conversation is the canonical, deduplicated thread. ConversationKey is
// the dedup identity: SHA-256 over the ordered (role, content-hash)
// sequence, deliberately ignoring timestamps (spec §9 open question).
type Conversation struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	ConversationKey    [32]byte   `json:"conversation_key" db:"conversation_key"`
	SourceSystem       string     `json:"source_system" db:"source_system"`
	ExternalID         string     `json:"external_id" db:"external_id"`
	Title              string     `json:"title,omitempty" db:"title"`
	MessageCount        int        `json:"message_count" db:"message_count"`
	FirstMessageAtUtc   *time.Time `json:"first_message_at_utc,omitempty" db:"first_message_at_utc"`
	LastMessageAtUtc    *time.Time `json:"last_message_at_utc,omitempty" db:"last_message_at_utc"`
	CreatedAtUtc        time.Time  `json:"created_at_utc" db:"created_at_utc"`
}

// Role enumerates the message authors the parser recognizes.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one turn within a Conversation. The tuple (conversation,
// role, sequence, content_hash) is unique.
type Message struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ConversationID uuid.UUID  `json:"conversation_id" db:"conversation_id"`
	Role           Role       `json:"role" db:"role"`
	SequenceIndex  int        `json:"sequence_index" db:"sequence_index"`
	Content        string     `json:"content" db:"content"`
	ContentHash    [32]byte   `json:"content_hash" db:"content_hash"`
	TimestampUtc   *time.Time `json:"timestamp_utc,omitempty" db:"timestamp_utc"`
	SourceArtifact uuid.UUID  `json:"source_artifact_id" db:"source_artifact_id"`
}

// ConversationArtifactMap is the many-to-many provenance row: a
// conversation may be re-derived from more than one artifact.
type ConversationArtifactMap struct {
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	ArtifactID     uuid.UUID `json:"artifact_id" db:"artifact_id"`
	LinkedAtUtc    time.Time `json:"linked_at_utc" db:"linked_at_utc"`
}

// ParsingFailure is a structured, per-artifact failure record.
type ParsingFailure struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ArtifactID   uuid.UUID `json:"artifact_id" db:"artifact_id"`
	ExternalID   string    `json:"external_id,omitempty" db:"external_id"`
	Reason       string    `json:"reason" db:"reason"`
	DetailsJson  string    `json:"details_json,omitempty" db:"details_json"`
	OccurredAtUtc time.Time `json:"occurred_at_utc" db:"occurred_at_utc"`
}

// ConversationSegment is a contiguous message range treated as a single
// embedding unit. Unique per (conversation, segment_index).
type ConversationSegment struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	ConversationID     uuid.UUID `json:"conversation_id" db:"conversation_id"`
	RunID              uuid.UUID `json:"run_id" db:"run_id"`
	SegmentIndex       int       `json:"segment_index" db:"segment_index"`
	StartMessageIndex  int       `json:"start_message_index" db:"start_message_index"`
	EndMessageIndex    int       `json:"end_message_index" db:"end_message_index"` // inclusive
	MessageCount       int       `json:"message_count" db:"message_count"`
	ContentText        string    `json:"content_text" db:"content_text"`
	ContentHash        [32]byte  `json:"content_hash" db:"content_hash"`
	CreatedAtUtc       time.Time `json:"created_at_utc" db:"created_at_utc"`
}

// SegmentEmbedding is a cached (segment, model) vector. Dimensions must
// equal len(VectorBytes)/4; vectors are little-endian float32.
type SegmentEmbedding struct {
	SegmentID         uuid.UUID `json:"segment_id" db:"segment_id"`
	EmbeddingModel    string    `json:"embedding_model" db:"embedding_model"`
	VectorBytes       []byte    `json:"-" db:"vector_bytes"`
	Dimensions        int       `json:"dimensions" db:"dimensions"`
	SourceContentHash [32]byte  `json:"source_content_hash" db:"source_content_hash"`
	UpdatedAtUtc      time.Time `json:"updated_at_utc" db:"updated_at_utc"`
}

// RunType enumerates the pipelines the ledger tracks.
type RunType string

const (
	RunTypeClustering RunType = "Clustering"
	RunTypeTopics     RunType = "Topics"
	RunTypeEmbeddings RunType = "Embeddings"
	RunTypeSimilarity RunType = "Similarity"
	RunTypeDrift      RunType = "Drift"
	RunTypeBlogTopics RunType = "BlogTopics"
)

const (
	RunStatusRunning   = "Running"
	RunStatusCompleted = "Completed"
	RunStatusFailed    = "Failed"
)

// InferenceRun is the provenance root: every derived row references
// exactly one run, and purging a run removes only its derived rows.
type InferenceRun struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	RunType          RunType    `json:"run_type" db:"run_type"`
	ModelName        string     `json:"model_name" db:"model_name"`
	ModelVersion     string     `json:"model_version" db:"model_version"`
	FeatureConfigHash [32]byte  `json:"feature_config_hash" db:"feature_config_hash"`
	InputScope       string     `json:"input_scope" db:"input_scope"`
	InputDescription string     `json:"input_description,omitempty" db:"input_description"`
	Status           string     `json:"status" db:"status"`
	StartedAtUtc     time.Time  `json:"started_at_utc" db:"started_at_utc"`
	CompletedAtUtc   *time.Time `json:"completed_at_utc,omitempty" db:"completed_at_utc"`
	MetricsJson      string     `json:"metrics_json,omitempty" db:"metrics_json"`
}

const (
	SuggestionPending  = "Pending"
	SuggestionAccepted = "Accepted"
	SuggestionRejected = "Rejected"
	SuggestionMerged   = "Merged"
)

// ProjectSuggestion materializes a cluster as a human-reviewable proposal.
type ProjectSuggestion struct {
	ID                      uuid.UUID  `json:"id" db:"id"`
	RunID                   uuid.UUID  `json:"run_id" db:"run_id"`
	SuggestedProjectKey     string     `json:"suggested_project_key" db:"suggested_project_key"`
	SuggestedName           string     `json:"suggested_name" db:"suggested_name"`
	Summary                 string     `json:"summary,omitempty" db:"summary"`
	Confidence              float64    `json:"confidence" db:"confidence"` // (5,4)
	Status                  string     `json:"status" db:"status"`
	SegmentIdsJson          string     `json:"segment_ids_json" db:"segment_ids_json"`
	ConversationIdsJson     string     `json:"conversation_ids_json" db:"conversation_ids_json"`
	UniqueConversationCount int        `json:"unique_conversation_count" db:"unique_conversation_count"`
	ResolvedProjectID       *uuid.UUID `json:"resolved_project_id,omitempty" db:"resolved_project_id"`
	CreatedAtUtc            time.Time  `json:"created_at_utc" db:"created_at_utc"`
}

// Topic is a placeholder-labeled topic produced by one Topics run.
type Topic struct {
	ID       uuid.UUID `json:"id" db:"id"`
	RunID    uuid.UUID `json:"run_id" db:"run_id"`
	Index    int       `json:"index" db:"topic_index"`
	Label    string    `json:"label" db:"label"`
	Keywords []string  `json:"keywords,omitempty" db:"keywords"`
}

// ConversationTopic is a per-(conversation, topic) score in [0,1]; scores
// for one conversation under one run sum to ~1.
type ConversationTopic struct {
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	TopicID        uuid.UUID `json:"topic_id" db:"topic_id"`
	RunID          uuid.UUID `json:"run_id" db:"run_id"`
	Score          float64   `json:"score" db:"score"` // (7,6)
}

// ConversationSimilarity is a canonicalized (ConversationIDA <
// ConversationIDB) edge, unique per (run, A, B).
type ConversationSimilarity struct {
	ID               uuid.UUID `json:"id" db:"id"`
	RunID            uuid.UUID `json:"run_id" db:"run_id"`
	ConversationIDA  uuid.UUID `json:"conversation_id_a" db:"conversation_id_a"`
	ConversationIDB  uuid.UUID `json:"conversation_id_b" db:"conversation_id_b"`
	Score            float64   `json:"score" db:"score"` // (7,6)
	Method           string    `json:"method" db:"method"`
}

// ProjectDriftMetric is a windowed drift measurement for one project.
type ProjectDriftMetric struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RunID       uuid.UUID `json:"run_id" db:"run_id"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id"`
	WindowStart time.Time `json:"window_start" db:"window_start"`
	WindowEnd   time.Time `json:"window_end" db:"window_end"`
	DriftScore  float64   `json:"drift_score" db:"drift_score"` // [0,1]
	DetailsJson string    `json:"details_json,omitempty" db:"details_json"`
}

const (
	OverrideAccept            = "accept"
	OverrideReject            = "reject"
	OverrideMerge             = "merge"
	OverrideSplit             = "split"
	OverrideRename            = "rename"
	OverrideSuppressSuggestion = "suppress"
)

// UserOverride is an append-only event log of human decisions that must
// survive reruns. SegmentSetFingerprint is the SHA-256 of the sorted
// member segment ids, used to match a suggestion across reruns.
type UserOverride struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	Action                string    `json:"action" db:"action"`
	SuggestionID          uuid.UUID `json:"suggestion_id,omitempty" db:"suggestion_id"`
	ProjectID             *uuid.UUID `json:"project_id,omitempty" db:"project_id"`
	SegmentSetFingerprint [32]byte  `json:"segment_set_fingerprint" db:"segment_set_fingerprint"`
	Note                  string    `json:"note,omitempty" db:"note"`
	CreatedAtUtc          time.Time `json:"created_at_utc" db:"created_at_utc"`
}
