package drift

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chatlake/chatlake/internal/database"
)

// DetectForProject is the persistence-aware entry point (spec §4.9, §6):
// it builds D_curr/D_prev from stored ConversationTopic rows for a
// project's conversations falling in [windowStart, windowEnd) and the
// equal-length preceding window, then runs Detect.
func DetectForProject(ctx context.Context, db *database.DB, runID, projectID uuid.UUID, windowStart, windowEnd time.Time) (Metric, error) {
	prevStart, prevEnd := database.WindowBounds(windowStart, windowEnd)

	projectConversations, err := db.GetConversationIDsForProject(ctx, projectID)
	if err != nil {
		return Metric{}, err
	}
	inProject := make(map[uuid.UUID]struct{}, len(projectConversations))
	for _, id := range projectConversations {
		inProject[id] = struct{}{}
	}

	curr, err := aggregateWindowDistribution(ctx, db, runID, inProject, windowStart, windowEnd)
	if err != nil {
		return Metric{}, err
	}
	prev, err := aggregateWindowDistribution(ctx, db, runID, inProject, prevStart, prevEnd)
	if err != nil {
		return Metric{}, err
	}

	return Detect(curr, prev), nil
}

// aggregateWindowDistribution sums each project conversation's topic
// scores across the window into one unnormalized distribution; Detect
// L2-normalizes before comparing, so summation here (rather than
// averaging) is sufficient.
func aggregateWindowDistribution(ctx context.Context, db *database.DB, runID uuid.UUID, inProject map[uuid.UUID]struct{}, start, end time.Time) (map[TopicID]float64, error) {
	conversations, err := db.ListConversationsInWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	dist := make(map[TopicID]float64)
	for _, c := range conversations {
		if _, ok := inProject[c.ID]; !ok {
			continue
		}
		scores, err := db.GetConversationTopicScores(ctx, runID, c.ID)
		if err != nil {
			return nil, err
		}
		for topicID, score := range scores {
			dist[topicID] += score
		}
	}
	return dist, nil
}
