package clustering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointAt(x, y float64) Point {
	return Point{SegmentID: uuid.New(), Vector: []float64{x, y}}
}

func TestRunKMeans_EmptyInputYieldsEmptyResult(t *testing.T) {
	result, err := RunKMeans(nil, KMeansOptions{ClusterCount: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Clusters)
}

func TestRunKMeans_ClusterCountCappedAtPointCount(t *testing.T) {
	points := []Point{pointAt(0, 0), pointAt(1, 1)}
	result, err := RunKMeans(points, KMeansOptions{ClusterCount: 10, Seed: 1})
	require.NoError(t, err)

	members := 0
	for _, c := range result.Clusters {
		members += len(c.MemberSegmentIDs) + c.OutlierCount
	}
	assert.Equal(t, len(points), members)
}

func TestRunKMeans_PrunesFarOutliers(t *testing.T) {
	var points []Point
	// two tight clusters of 4 points each, near (0,0) and (100,100)
	for _, base := range [][2]float64{{0, 0}, {100, 100}} {
		for i := 0; i < 4; i++ {
			dx := float64(i%2) * 0.1
			dy := float64(i/2) * 0.1
			points = append(points, pointAt(base[0]+dx, base[1]+dy))
		}
	}
	// two outliers, one beside each cluster: beyond the threshold from the
	// centroid they pull toward themselves, while the tight points stay
	// within it
	points = append(points, pointAt(8, 8))
	points = append(points, pointAt(92, 92))

	result, err := RunKMeans(points, KMeansOptions{ClusterCount: 2, Seed: 42, OutlierThreshold: 3.0, MaxIterations: 50})
	require.NoError(t, err)

	totalOutliers := 0
	totalMembers := 0
	for _, c := range result.Clusters {
		totalOutliers += c.OutlierCount
		totalMembers += len(c.MemberSegmentIDs)
	}
	assert.Equal(t, 2, totalOutliers, "both far points should be pruned as outliers")
	assert.Equal(t, 8, totalMembers, "the eight tight-cluster points should remain")
}

func TestRunKMeans_IsDeterministicForSameSeed(t *testing.T) {
	points := []Point{pointAt(0, 0), pointAt(1, 0), pointAt(10, 10), pointAt(11, 10)}
	r1, err := RunKMeans(points, KMeansOptions{ClusterCount: 2, Seed: 7})
	require.NoError(t, err)
	r2, err := RunKMeans(points, KMeansOptions{ClusterCount: 2, Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, len(r1.Clusters), len(r2.Clusters))
	for i := range r1.Clusters {
		assert.Equal(t, r1.Clusters[i].MemberSegmentIDs, r2.Clusters[i].MemberSegmentIDs)
	}
}
