// Package drift implements C9's topic-distribution drift detector
// (spec §4.9): cosine drift between a project's current and preceding
// topic distributions.
package drift

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// TopicID identifies a topic row within one inference run.
type TopicID = uuid.UUID

// TopicShift is one topic's contribution to a drift metric, sorted by
// |delta| descending for DetailsJson.
type TopicShift struct {
	TopicID TopicID
	Prev    float64
	Curr    float64
	Delta   float64 // curr - prev
}

// Metric is Detect's full output.
type Metric struct {
	DriftScore  float64
	TopicShifts []TopicShift
}

// Detect aligns curr/prev by the union of topic ids (missing entries
// treated as 0), L2-normalizes both, and computes
// drift = clamp(1 - cosine(prev, curr), 0, 1). Edge cases: both empty -> 0,
// exactly one empty -> 1 (spec §4.9).
func Detect(curr, prev map[TopicID]float64) Metric {
	if len(curr) == 0 && len(prev) == 0 {
		return Metric{DriftScore: 0}
	}
	if len(curr) == 0 || len(prev) == 0 {
		return Metric{DriftScore: 1, TopicShifts: buildShifts(curr, prev)}
	}

	ids := make(map[TopicID]struct{}, len(curr)+len(prev))
	for id := range curr {
		ids[id] = struct{}{}
	}
	for id := range prev {
		ids[id] = struct{}{}
	}

	ordered := make([]TopicID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	currVec := make([]float64, len(ordered))
	prevVec := make([]float64, len(ordered))
	for i, id := range ordered {
		currVec[i] = curr[id]
		prevVec[i] = prev[id]
	}

	currNorm := floats.Norm(currVec, 2)
	prevNorm := floats.Norm(prevVec, 2)

	var cos float64
	if currNorm > 0 && prevNorm > 0 {
		cos = floats.Dot(currVec, prevVec) / (currNorm * prevNorm)
	}

	drift := clamp01(1 - cos)

	return Metric{DriftScore: round4(drift), TopicShifts: buildShifts(curr, prev)}
}

func buildShifts(curr, prev map[TopicID]float64) []TopicShift {
	ids := make(map[TopicID]struct{}, len(curr)+len(prev))
	for id := range curr {
		ids[id] = struct{}{}
	}
	for id := range prev {
		ids[id] = struct{}{}
	}

	shifts := make([]TopicShift, 0, len(ids))
	for id := range ids {
		c, p := curr[id], prev[id]
		shifts = append(shifts, TopicShift{TopicID: id, Prev: p, Curr: c, Delta: c - p})
	}
	sort.Slice(shifts, func(i, j int) bool {
		return math.Abs(shifts[i].Delta) > math.Abs(shifts[j].Delta)
	})
	return shifts
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
