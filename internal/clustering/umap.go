package clustering

import (
	"math"
	"sort"

	"github.com/alitto/pond"
)

// umapReduce projects L2-normalized vectors into opts.UMAPDimensions,
// following the standard UMAP shape: a fuzzy simplicial set built from
// calibrated per-point k-NN membership strengths, symmetrized by a
// probabilistic t-conorm, then optimized by a negative-sampling
// force-directed layout (spec §4.5 phase 1).
func umapReduce(vectors [][]float64, opts Options, rng *SeededRNG, pool *pond.WorkerPool, progress ProgressFunc) [][]float64 {
	n := len(vectors)
	normalized := make([][]float64, n)
	for i, v := range vectors {
		normalized[i] = l2Normalize(v)
	}

	neighbors, dists := knn(normalized, opts.UMAPNeighbors, euclidean)
	strengths := smoothMembershipStrengths(dists, opts.UMAPNeighbors)

	edges := symmetrizeFuzzySet(neighbors, strengths)

	embedding := initEmbedding(n, opts.UMAPDimensions, rng)
	optimizeLayout(embedding, edges, rng, progress)

	return embedding
}

// knn returns, for each point, the indices and distances of its k nearest
// neighbors under metric (brute force — batch sizes here are bounded by
// one ingestion run's segment count, not corpus scale).
func knn(vectors [][]float64, k int, metric func(a, b []float64) float64) ([][]int, [][]float64) {
	n := len(vectors)
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}

	neighbors := make([][]int, n)
	dists := make([][]float64, n)

	for i := 0; i < n; i++ {
		type cand struct {
			idx int
			d   float64
		}
		cands := make([]cand, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			cands = append(cands, cand{idx: j, d: metric(vectors[i], vectors[j])})
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].d < cands[b].d })
		if len(cands) > k {
			cands = cands[:k]
		}
		idxs := make([]int, len(cands))
		ds := make([]float64, len(cands))
		for x, c := range cands {
			idxs[x] = c.idx
			ds[x] = c.d
		}
		neighbors[i] = idxs
		dists[i] = ds
	}
	return neighbors, dists
}

// smoothMembershipStrengths calibrates each point's local connectivity
// radius (rho, the distance to its nearest neighbor) and bandwidth (sigma,
// found by binary search) so that the sum of membership strengths to its
// k neighbors approximates log2(k) — UMAP's standard smooth k-NN distance
// calibration.
func smoothMembershipStrengths(dists [][]float64, k int) [][]float64 {
	target := math.Log2(float64(k))
	strengths := make([][]float64, len(dists))

	for i, row := range dists {
		if len(row) == 0 {
			strengths[i] = nil
			continue
		}
		rho := row[0]

		lo, hi := 1e-8, 1000.0
		var sigma float64
		for iter := 0; iter < 40; iter++ {
			sigma = (lo + hi) / 2
			sum := 0.0
			for _, d := range row {
				sum += math.Exp(-math.Max(0, d-rho) / sigma)
			}
			if sum > target {
				hi = sigma
			} else {
				lo = sigma
			}
		}

		w := make([]float64, len(row))
		for j, d := range row {
			w[j] = math.Exp(-math.Max(0, d-rho) / sigma)
		}
		strengths[i] = w
	}
	return strengths
}

// fuzzyEdge is one symmetrized, weighted edge of the simplicial set.
type fuzzyEdge struct {
	a, b   int
	weight float64
}

// symmetrizeFuzzySet unions each directed membership strength with its
// reverse via the probabilistic t-conorm a + b - a*b, UMAP's standard
// fuzzy-set symmetrization.
func symmetrizeFuzzySet(neighbors [][]int, strengths [][]float64) []fuzzyEdge {
	n := len(neighbors)
	weight := make(map[[2]int]float64)

	record := func(a, b int, w float64) {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		existing, ok := weight[key]
		if !ok {
			weight[key] = w
			return
		}
		weight[key] = existing + w - existing*w
	}

	for i := 0; i < n; i++ {
		for x, j := range neighbors[i] {
			record(i, j, strengths[i][x])
		}
	}

	edges := make([]fuzzyEdge, 0, len(weight))
	for k, w := range weight {
		edges = append(edges, fuzzyEdge{a: k[0], b: k[1], weight: w})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})
	return edges
}

func initEmbedding(n, dims int, rng *SeededRNG) [][]float64 {
	embedding := make([][]float64, n)
	for i := range embedding {
		row := make([]float64, dims)
		for d := range row {
			row[d] = (rng.NextFloat()*2 - 1) * 10
		}
		embedding[i] = row
	}
	return embedding
}

const (
	umapEpochs    = 200
	umapNegatives = 5
	umapA         = 1.577 // standard UMAP default curve params for min_dist=0.1
	umapB         = 0.895
)

// optimizeLayout runs UMAP's negative-sampling gradient descent: attractive
// forces pull connected points together along the a/b-parameterized
// membership curve, repulsive forces push a small random sample of
// unconnected points apart. Progress fires every ~10% of epochs, occupying
// the first 80% of total reported progress (spec §4.5).
func optimizeLayout(embedding [][]float64, edges []fuzzyEdge, rng *SeededRNG, progress ProgressFunc) {
	n := len(embedding)
	if n == 0 {
		return
	}
	dims := len(embedding[0])

	for epoch := 0; epoch < umapEpochs; epoch++ {
		alpha := 1.0 - float64(epoch)/float64(umapEpochs)

		for _, e := range edges {
			if rng.NextFloat() > e.weight {
				continue
			}
			applyAttraction(embedding[e.a], embedding[e.b], alpha)

			for neg := 0; neg < umapNegatives; neg++ {
				k := rng.NextIntN(n)
				if k == e.a {
					continue
				}
				applyRepulsion(embedding[e.a], embedding[k], alpha)
			}
		}

		if progress != nil && epoch%(umapEpochs/10+1) == 0 {
			progress(0.8 * float64(epoch) / float64(umapEpochs))
		}
	}
	if progress != nil {
		progress(0.8)
	}
	_ = dims
}

func applyAttraction(a, b []float64, alpha float64) {
	distSq := squaredDist(a, b)
	if distSq == 0 {
		return
	}
	coeff := (-2 * umapA * umapB * math.Pow(distSq, umapB-1)) / (umapA*math.Pow(distSq, umapB) + 1)
	for d := range a {
		grad := clampGrad(coeff*(a[d]-b[d])) * alpha
		a[d] += grad
		b[d] -= grad
	}
}

func applyRepulsion(a, b []float64, alpha float64) {
	distSq := squaredDist(a, b)
	if distSq == 0 {
		distSq = 1e-4
	}
	coeff := 2 * umapB / ((0.001 + distSq) * (umapA*math.Pow(distSq, umapB) + 1))
	for d := range a {
		grad := clampGrad(coeff*(a[d]-b[d])) * alpha
		a[d] += grad
	}
}

func squaredDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clampGrad(g float64) float64 {
	if g > 4 {
		return 4
	}
	if g < -4 {
		return -4
	}
	return g
}
