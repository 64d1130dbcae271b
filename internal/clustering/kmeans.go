package clustering

import (
	"math"

	"github.com/google/uuid"
)

// RunKMeans is the fallback clusterer (spec §4.6): Lloyd's algorithm with
// k-means++ seeding, k capped at len(points), and outlier pruning against
// opts.OutlierThreshold.
func RunKMeans(points []Point, opts KMeansOptions) (Result, error) {
	n := len(points)
	if n == 0 {
		return Result{}, nil
	}

	k := opts.ClusterCount
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	vectors := make([][]float64, n)
	for i, p := range points {
		vectors[i] = p.Vector
	}

	rng := NewSeededRNG(opts.Seed)
	centroids := kmeansPlusPlusInit(vectors, k, rng)

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}

	assignment := make([]int, n)
	minDist := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := nearestCentroid(v, centroids)
			minDist[i] = bestDist
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		newCentroids := make([][]float64, k)
		counts := make([]int, k)
		for c := range newCentroids {
			newCentroids[c] = make([]float64, len(vectors[0]))
		}
		for i, v := range vectors {
			c := assignment[i]
			counts[c]++
			for d, x := range v {
				newCentroids[c][d] += x
			}
		}
		for c := range newCentroids {
			if counts[c] == 0 {
				newCentroids[c] = centroids[c]
				continue
			}
			for d := range newCentroids[c] {
				newCentroids[c][d] /= float64(counts[c])
			}
		}
		centroids = newCentroids

		if !changed && iter > 0 {
			break
		}
	}

	return buildKMeansResult(points, assignment, minDist, k, opts.OutlierThreshold), nil
}

func kmeansPlusPlusInit(vectors [][]float64, k int, rng *SeededRNG) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, 0, k)
	first := rng.NextIntN(n)
	centroids = append(centroids, append([]float64{}, vectors[first]...))

	for len(centroids) < k {
		weights := make([]float64, n)
		var total float64
		for i, v := range vectors {
			_, d := nearestCentroid(v, centroids)
			weights[i] = d * d
			total += weights[i]
		}
		if total == 0 {
			idx := rng.NextIntN(n)
			centroids = append(centroids, append([]float64{}, vectors[idx]...))
			continue
		}
		target := rng.NextFloat() * total
		var cum float64
		chosen := n - 1
		for i, w := range weights {
			cum += w
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64{}, vectors[chosen]...))
	}
	return centroids
}

func nearestCentroid(v []float64, centroids [][]float64) (int, float64) {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		d := euclidean(v, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, bestDist
}

// buildKMeansResult assembles Cluster stats, pruning members whose
// minimum distance to their centroid exceeds outlierThreshold (when > 0)
// out of the member list and into OutlierCount, per spec §4.6.
func buildKMeansResult(points []Point, assignment []int, minDist []float64, k int, outlierThreshold float64) Result {
	members := make([][]int, k)
	for i, c := range assignment {
		members[c] = append(members[c], i)
	}

	var clusters []Cluster
	for c := 0; c < k; c++ {
		idxs := members[c]
		if len(idxs) == 0 {
			continue
		}

		var kept []uuid.UUID
		var sumDist float64
		outliers := 0
		for _, idx := range idxs {
			if outlierThreshold > 0 && minDist[idx] > outlierThreshold {
				outliers++
				continue
			}
			kept = append(kept, points[idx].SegmentID)
			sumDist += minDist[idx]
		}

		avgDist := 0.0
		if len(kept) > 0 {
			avgDist = sumDist / float64(len(kept))
		}

		clusters = append(clusters, Cluster{
			ID:               c + 1,
			MemberSegmentIDs: kept,
			OutlierCount:     outliers,
			AvgOutlierScore:  round4(avgDist),
			Confidence:       round4(math.Max(0, 1-avgDist/10)),
		})
	}

	return Result{Clusters: clusters}
}
