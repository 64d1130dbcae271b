// Package suggestions implements C11's suggestion writer (spec §4.11):
// serializing a cluster as a human-reviewable ProjectSuggestion.
package suggestions

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/chatlake/chatlake/internal/clustering"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/similarity"
	"github.com/chatlake/chatlake/internal/useroverride"
)

// SegmentConversation maps a cluster member segment id to its owning
// conversation id, since a Cluster only carries segment ids.
type SegmentConversation func(segmentID uuid.UUID) (conversationID uuid.UUID, ok bool)

// SegmentText maps a segment id to its ContentText, used to count the
// cluster's most frequent terms for naming.
type SegmentText func(segmentID uuid.UUID) (text string, ok bool)

// Writer turns clusters into ProjectSuggestion rows, skipping ones
// suppressed by a prior UserOverride decision.
type Writer struct {
	overrides *useroverride.Store
}

// New constructs a Writer over the given override store.
func New(overrides *useroverride.Store) *Writer {
	return &Writer{overrides: overrides}
}

// nowFunc is overridable in tests; production uses time.Now.
var nowFunc = time.Now

// WriteFromCluster builds (but does not persist — the caller owns the
// transaction via internal/database) a ProjectSuggestion from cluster,
// or returns (nil, nil) when the cluster's fingerprint is suppressed.
func (w *Writer) WriteFromCluster(ctx context.Context, runID uuid.UUID, cluster clustering.Cluster, resolveConversation SegmentConversation, segmentText SegmentText) (*models.ProjectSuggestion, error) {
	fingerprint := useroverride.Fingerprint(cluster.MemberSegmentIDs)

	suppressed, err := w.overrides.IsSuppressed(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if suppressed {
		return nil, nil
	}

	conversationSet := make(map[uuid.UUID]struct{})
	var conversationIDs []uuid.UUID
	for _, segID := range cluster.MemberSegmentIDs {
		convID, ok := resolveConversation(segID)
		if !ok {
			continue
		}
		if _, seen := conversationSet[convID]; seen {
			continue
		}
		conversationSet[convID] = struct{}{}
		conversationIDs = append(conversationIDs, convID)
	}

	name := topTermName(cluster.MemberSegmentIDs, segmentText)
	key := slug.Make(name) + "-" + strconv.FormatInt(nowFunc().Unix(), 10)

	segmentIDsJSON, err := marshalUUIDs(cluster.MemberSegmentIDs)
	if err != nil {
		return nil, err
	}
	conversationIDsJSON, err := marshalUUIDs(conversationIDs)
	if err != nil {
		return nil, err
	}

	return &models.ProjectSuggestion{
		RunID:                   runID,
		SuggestedProjectKey:     key,
		SuggestedName:           name,
		Confidence:              cluster.Confidence,
		Status:                  models.SuggestionPending,
		SegmentIdsJson:          segmentIDsJSON,
		ConversationIdsJson:     conversationIDsJSON,
		UniqueConversationCount: len(conversationIDs),
	}, nil
}

// topTermName derives a deterministic name from the most frequent terms
// across the cluster's member segments' text — ties broken by term
// string. Terms are ranked by raw count; no IDF weighting is applied.
func topTermName(segmentIDs []uuid.UUID, segmentText SegmentText) string {
	const maxTerms = 4
	termFreq := make(map[string]int)

	for _, segID := range segmentIDs {
		text, ok := segmentText(segID)
		if !ok {
			continue
		}
		for _, tok := range similarity.Tokenize(text, similarity.NormalizeOptions{}) {
			termFreq[tok]++
		}
	}

	type termCount struct {
		term  string
		count int
	}
	terms := make([]termCount, 0, len(termFreq))
	for t, c := range termFreq {
		terms = append(terms, termCount{term: t, count: c})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})

	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	if len(terms) == 0 {
		return "untitled project"
	}

	words := make([]string, len(terms))
	for i, t := range terms {
		words[i] = t.term
	}
	return joinTitle(words)
}

func joinTitle(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

func marshalUUIDs(ids []uuid.UUID) (string, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	b, err := json.Marshal(strs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
