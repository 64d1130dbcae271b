// Package ingestion turns a stream of parsed conversations into
// persisted, deduplicated Conversation/Message rows under one
// ImportBatch, per spec §4.2.
package ingestion

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/errors"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/parser"
)

// IngestSummary reports per-batch progress, mirroring the ImportBatch
// counters it accumulates.
type IngestSummary struct {
	ConversationsSeen   int
	ConversationsNew    int
	ConversationsLinked int
	MessagesInserted    int
	Failures            int
	Errors              []error
}

// Pipeline wires the DB into C2's ingestion contract.
type Pipeline struct {
	db *database.DB
}

// NewPipeline constructs a Pipeline over db.
func NewPipeline(db *database.DB) *Pipeline {
	return &Pipeline{db: db}
}

// Ingest consumes the parser's channel, deduplicating by ConversationKey
// and persisting new conversations' messages, one transaction per
// conversation (spec §5). A cancellation check runs between conversations;
// on cancel the batch is marked Failed with "Cancelled" and ctx.Err() is
// returned. A per-conversation error is captured as a ParsingFailure and
// does not abort the batch.
func (p *Pipeline) Ingest(ctx context.Context, batchID, artifactID uuid.UUID, conversations <-chan parser.ParsedConversation) (*IngestSummary, error) {
	summary := &IngestSummary{}

	for conv := range conversations {
		select {
		case <-ctx.Done():
			_ = p.db.FailImportBatch(context.Background(), batchID, "Cancelled")
			return summary, ctx.Err()
		default:
		}

		summary.ConversationsSeen++

		isNew, err := p.ingestOne(ctx, batchID, artifactID, conv)
		if err != nil {
			summary.Failures++
			summary.Errors = append(summary.Errors, err)
			_ = p.db.CreateParsingFailure(ctx, &models.ParsingFailure{
				ArtifactID: artifactID,
				ExternalID: conv.ExternalID,
				Reason:     "conversation_skipped",
				DetailsJson: err.Error(),
			})
			_ = p.db.IncrementBatchCounters(ctx, batchID, 0, 0, 1)
			continue
		}
		if isNew {
			summary.ConversationsNew++
			summary.MessagesInserted += len(conv.Messages)
			_ = p.db.IncrementBatchCounters(ctx, batchID, 1, len(conv.Messages), 0)
		} else {
			summary.ConversationsLinked++
			_ = p.db.IncrementBatchCounters(ctx, batchID, 0, 0, 0)
		}
	}

	return summary, nil
}

// ingestOne upserts one conversation by ConversationKey. It returns true
// when a brand-new conversation (and its messages) was inserted, false
// when an existing conversation was merely linked to this artifact.
func (p *Pipeline) ingestOne(ctx context.Context, batchID, artifactID uuid.UUID, conv parser.ParsedConversation) (bool, error) {
	key := ConversationKey(conv)

	existing, err := p.db.GetConversationByKey(ctx, key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		err := p.db.Transaction(func(tx *sql.Tx) error {
			return database.LinkConversationArtifactTx(ctx, tx, existing.ID, artifactID)
		})
		if err != nil && !errors.IsCode(err, errors.Conflict) {
			return false, err
		}
		return false, nil
	}

	first, last := messageWindow(conv.Messages)

	newConv := &models.Conversation{
		ID:                uuid.New(),
		ConversationKey:   key,
		SourceSystem:      conv.SourceSystem,
		ExternalID:        conv.ExternalID,
		Title:             conv.Title,
		MessageCount:      len(conv.Messages),
		FirstMessageAtUtc: first,
		LastMessageAtUtc:  last,
	}

	err = p.db.Transaction(func(tx *sql.Tx) error {
		if err := database.CreateConversationTx(ctx, tx, newConv); err != nil {
			return err
		}
		if err := database.LinkConversationArtifactTx(ctx, tx, newConv.ID, artifactID); err != nil {
			return err
		}
		for _, m := range conv.Messages {
			msg := &models.Message{
				ConversationID: newConv.ID,
				Role:           models.Role(m.Role),
				SequenceIndex:  m.SequenceIndex,
				Content:        m.Content,
				ContentHash:    ContentHash(m.Content),
				TimestampUtc:   unixToTime(m.TimestampUnix),
				SourceArtifact: artifactID,
			}
			if err := database.CreateMessageTx(ctx, tx, msg); err != nil {
				if errors.IsCode(err, errors.Conflict) {
					continue
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.IsCode(err, errors.Conflict) {
			// Another writer created the same ConversationKey concurrently;
			// the dedup target now exists, so re-run as a link.
			return p.ingestOne(ctx, batchID, artifactID, conv)
		}
		return false, err
	}

	return true, nil
}

// ContentHash is the SHA-256 of a message's UTF-8 content (spec §4.2.1).
func ContentHash(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// ConversationKey is the SHA-256 over the ordered (role, content_hash)
// sequence — structural, not timestamp-dependent (spec §4.2.2, §9).
func ConversationKey(conv parser.ParsedConversation) [32]byte {
	h := sha256.New()
	for _, m := range conv.Messages {
		contentHash := ContentHash(m.Content)
		h.Write([]byte(m.Role))
		h.Write([]byte{0x1F})
		h.Write(contentHash[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// messageWindow computes the min/max of non-null message timestamps, or
// (nil, nil) if every timestamp is absent (spec §9 "nullable time fields").
func messageWindow(messages []parser.ParsedMessage) (*time.Time, *time.Time) {
	var first, last *time.Time
	for _, m := range messages {
		t := unixToTime(m.TimestampUnix)
		if t == nil {
			continue
		}
		if first == nil || t.Before(*first) {
			first = t
		}
		if last == nil || t.After(*last) {
			last = t
		}
	}
	return first, last
}

func unixToTime(seconds *float64) *time.Time {
	if seconds == nil {
		return nil
	}
	t := time.Unix(0, int64(*seconds*float64(time.Second))).UTC()
	return &t
}
