package clustering

import (
	"context"
	"runtime"

	"github.com/alitto/pond"
	"github.com/google/uuid"
)

// RunUMAPHDBSCAN is the primary clusterer (spec §4.5): UMAP dimensionality
// reduction followed by mutual-reachability HDBSCAN. When count is below
// opts.UMAPNeighbors, UMAP is skipped entirely and HDBSCAN runs directly
// on the original (cosine-metric) vectors — Result.UMAPDimensions
// reports 0 in that case.
func RunUMAPHDBSCAN(ctx context.Context, points []Point, opts Options, progress ProgressFunc) (Result, error) {
	n := len(points)
	if n == 0 {
		return Result{}, nil
	}

	pool := pond.New(runtime.GOMAXPROCS(0), runtime.GOMAXPROCS(0)*2, pond.MinWorkers(1))
	defer pool.StopAndWait()

	ids := make([]uuid.UUID, n)
	vectors := make([][]float64, n)
	for i, p := range points {
		ids[i] = p.SegmentID
		vectors[i] = p.Vector
	}

	if n < opts.UMAPNeighbors {
		result := hdbscanCluster(ids, vectors, cosineDistance, opts, pool)
		result.UMAPDimensions = 0
		return result, nil
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	rng := NewSeededRNG(opts.RandomSeed)
	reduced := umapReduce(vectors, opts, rng, pool, progress)

	result := hdbscanCluster(ids, reduced, euclidean, opts, pool)
	result.UMAPDimensions = opts.UMAPDimensions
	if progress != nil {
		progress(1.0)
	}
	return result, nil
}
