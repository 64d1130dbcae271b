package drift

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_BothEmpty(t *testing.T) {
	m := Detect(map[TopicID]float64{}, map[TopicID]float64{})
	assert.Zero(t, m.DriftScore)
}

func TestDetect_OneEmptyIsMaximalDrift(t *testing.T) {
	curr := map[TopicID]float64{uuid.New(): 1}
	m := Detect(curr, map[TopicID]float64{})
	assert.Equal(t, 1.0, m.DriftScore)
}

func TestDetect_IdenticalDistributionsHaveNearZeroDrift(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	dist := map[TopicID]float64{a: 0.5, b: 0.3, c: 0.2}
	m := Detect(dist, dist)
	assert.Less(t, m.DriftScore, 0.01)
}

func TestDetect_DisjointSupportsAreMaximalDrift(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	prev := map[TopicID]float64{a: 0.6, b: 0.4}
	curr := map[TopicID]float64{c: 0.7, d: 0.3}
	m := Detect(curr, prev)
	assert.Equal(t, 1.0, m.DriftScore)
}

func TestDetect_IsSymmetric(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	prev := map[TopicID]float64{a: 0.6, b: 0.3, c: 0.1}
	curr := map[TopicID]float64{a: 0.2, b: 0.2, c: 0.6}

	forward := Detect(curr, prev)
	backward := Detect(prev, curr)

	assert.InDelta(t, forward.DriftScore, backward.DriftScore, 1e-9)
}

func TestDetect_ScoreIsBounded(t *testing.T) {
	ids := make([]TopicID, 5)
	for i := range ids {
		ids[i] = uuid.New()
	}
	prev := map[TopicID]float64{ids[0]: 0.1, ids[1]: 0.2, ids[2]: 0.7}
	curr := map[TopicID]float64{ids[2]: 0.05, ids[3]: 0.55, ids[4]: 0.4}

	m := Detect(curr, prev)

	require.GreaterOrEqual(t, m.DriftScore, 0.0)
	require.LessOrEqual(t, m.DriftScore, 1.0)
}

func TestDetect_SelfComparisonIsZero(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	dist := map[TopicID]float64{a: 0.9, b: 0.1}
	m := Detect(dist, dist)
	assert.InDelta(t, 0.0, m.DriftScore, 1e-9)
}

func TestDetect_ShiftsSortedByAbsoluteDeltaDescending(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	prev := map[TopicID]float64{a: 0.1, b: 0.5, c: 0.4}
	curr := map[TopicID]float64{a: 0.1, b: 0.1, c: 0.8}

	m := Detect(curr, prev)

	require.Len(t, m.TopicShifts, 3)
	for i := 1; i < len(m.TopicShifts); i++ {
		prevAbs := m.TopicShifts[i-1].Delta
		currAbs := m.TopicShifts[i].Delta
		if prevAbs < 0 {
			prevAbs = -prevAbs
		}
		if currAbs < 0 {
			currAbs = -currAbs
		}
		assert.GreaterOrEqual(t, prevAbs, currAbs)
	}
}
