package clustering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUMAPHDBSCAN_EmptyInputYieldsEmptyResult(t *testing.T) {
	result, err := RunUMAPHDBSCAN(context.Background(), nil, Options{UMAPNeighbors: 15}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Clusters)
}

func TestRunUMAPHDBSCAN_FallsBackWhenBelowNeighborCount(t *testing.T) {
	points := []Point{
		pointAt(0, 0),
		pointAt(0.1, 0.1),
		pointAt(10, 10),
		pointAt(10.1, 10.1),
	}
	opts := Options{UMAPDimensions: 2, UMAPNeighbors: 15, MinClusterSize: 2, MinPoints: 2}

	result, err := RunUMAPHDBSCAN(context.Background(), points, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.UMAPDimensions, "fallback path must report UMAPDimensions=0")
}

func TestRunUMAPHDBSCAN_ProducesClusterIDsOnFallback(t *testing.T) {
	points := []Point{
		pointAt(0, 0),
		pointAt(0.05, 0.05),
		pointAt(10, 10),
		pointAt(10.05, 10.05),
	}
	opts := Options{UMAPNeighbors: 15, MinClusterSize: 2, MinPoints: 2}

	result, err := RunUMAPHDBSCAN(context.Background(), points, opts, nil)
	require.NoError(t, err)

	total := len(result.NoiseSegmentIDs)
	for _, c := range result.Clusters {
		total += len(c.MemberSegmentIDs)
	}
	assert.Equal(t, len(points), total, "every point must be accounted for as clustered or noise")
}

func TestRunUMAPHDBSCAN_RespectsContextCancellation(t *testing.T) {
	points := make([]Point, 20)
	for i := range points {
		points[i] = pointAt(float64(i), float64(i))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunUMAPHDBSCAN(ctx, points, Options{UMAPDimensions: 2, UMAPNeighbors: 5}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
