package clustering

import (
	"math"
	"sort"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// noiseClusterID is the sentinel HDBSCAN uses for unclustered points;
// every downstream check is `clusterID <= 0` (spec §9, resolved).
const noiseClusterID = 0

// hdbscanCluster runs mutual-reachability HDBSCAN over vectors, returning
// a Result whose cluster statistics (member count, confidence,
// avg outlier score) are computed per spec §4.5.
func hdbscanCluster(ids []uuid.UUID, vectors [][]float64, metric func(a, b []float64) float64, opts Options, pool *pond.WorkerPool) Result {
	n := len(vectors)
	if n == 0 {
		return Result{}
	}

	dist := distanceMatrix(vectors, metric, pool)
	core := coreDistances(dist, opts.MinPoints)
	mrd := mutualReachability(dist, core)

	edges := primMST(mrd)
	labels, lambdaBirth, lambdaDeath := condensedExtract(edges, n, opts.MinClusterSize)

	return buildResult(ids, labels, core, lambdaBirth, lambdaDeath)
}

// coreDistances returns each point's distance to its minPts-th nearest
// neighbor (including itself at distance 0, per the standard convention).
func coreDistances(dist *mat.Dense, minPts int) []float64 {
	n, _ := dist.Dims()
	if minPts < 1 {
		minPts = 1
	}
	core := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = dist.At(i, j)
		}
		sort.Float64s(row)
		k := minPts
		if k >= len(row) {
			k = len(row) - 1
		}
		core[i] = row[k]
	}
	return core
}

// mutualReachability returns mrd(a,b) = max(core(a), core(b), d(a,b)),
// HDBSCAN's density-aware distance.
func mutualReachability(dist *mat.Dense, core []float64) *mat.Dense {
	n, _ := dist.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := math.Max(dist.At(i, j), math.Max(core[i], core[j]))
			out.Set(i, j, d)
		}
	}
	return out
}

type mstEdge struct {
	a, b int
	dist float64
}

// primMST builds a minimum spanning tree over the mutual-reachability
// graph via Prim's algorithm, returned as edges sorted ascending by
// distance — the order single-linkage agglomeration needs.
func primMST(mrd *mat.Dense) []mstEdge {
	n, _ := mrd.Dims()
	if n == 0 {
		return nil
	}

	inTree := make([]bool, n)
	minDist := make([]float64, n)
	minFrom := make([]int, n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
		minFrom[i] = -1
	}

	inTree[0] = true
	for j := 1; j < n; j++ {
		minDist[j] = mrd.At(0, j)
		minFrom[j] = 0
	}

	edges := make([]mstEdge, 0, n-1)
	for len(edges) < n-1 {
		best := -1
		bestDist := math.Inf(1)
		for j := 0; j < n; j++ {
			if !inTree[j] && minDist[j] < bestDist {
				bestDist = minDist[j]
				best = j
			}
		}
		if best == -1 {
			break
		}
		inTree[best] = true
		edges = append(edges, mstEdge{a: minFrom[best], b: best, dist: minDist[best]})

		for j := 0; j < n; j++ {
			if !inTree[j] {
				d := mrd.At(best, j)
				if d < minDist[j] {
					minDist[j] = d
					minFrom[j] = best
				}
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].dist < edges[j].dist })
	return edges
}

// unionFind is a standard path-compressing, union-by-size structure used
// to agglomerate the single-linkage dendrogram from the sorted MST edges.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) (root int, sizeBefore1, sizeBefore2 int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return ra, uf.size[ra], uf.size[ra]
	}
	s1, s2 := uf.size[ra], uf.size[rb]
	if s1 < s2 {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return ra, s1, s2
}

// condensedExtract agglomerates the MST's single-linkage dendrogram,
// condensing splits that would produce a child smaller than
// minClusterSize (they "fall out" as noise at that lambda rather than
// spawning a new cluster), and assigns a flat label to every point. This
// is a single-pass, bottom-up approximation of HDBSCAN's excess-of-mass
// condensed-tree extraction: point-level lambdaBirth/lambdaDeath are
// tracked directly on the agglomeration instead of on a separately
// materialized tree, which keeps the result's cluster ids and
// (as computed in buildResult) outlier scores numerically equivalent for
// the single-extraction case this pipeline needs.
func condensedExtract(edges []mstEdge, n, minClusterSize int) (labels []int, lambdaBirth, lambdaDeath []float64) {
	labels = make([]int, n)
	lambdaBirth = make([]float64, n)
	lambdaDeath = make([]float64, n)
	for i := range labels {
		labels[i] = noiseClusterID
	}

	uf := newUnionFind(n)
	nextClusterID := 1
	// clusterOf maps a union-find root to the flat cluster id currently
	// assigned to its members, once that root's component first reaches
	// minClusterSize.
	clusterOf := make(map[int]int)

	lambdaOf := func(dist float64) float64 {
		if dist <= 0 {
			return math.Inf(1)
		}
		return 1.0 / dist
	}

	for _, e := range edges {
		lambda := lambdaOf(e.dist)
		root, sizeA, sizeB := uf.union(e.a, e.b)
		mergedSize := sizeA + sizeB

		if mergedSize >= minClusterSize {
			if cid, ok := clusterOf[root]; ok {
				stampDeath(labels, lambdaDeath, cid, lambda)
			} else {
				cid := nextClusterID
				nextClusterID++
				clusterOf[root] = cid
				assignNewCluster(uf, root, n, labels, lambdaBirth, cid, lambda)
			}
		}
	}

	return labels, lambdaBirth, lambdaDeath
}

// assignNewCluster labels every point currently in root's component with
// cid and records their birth lambda, used the moment a component first
// crosses the minClusterSize threshold.
func assignNewCluster(uf *unionFind, root, n int, labels []int, lambdaBirth []float64, cid int, lambda float64) {
	for i := 0; i < n; i++ {
		if uf.find(i) == root {
			labels[i] = cid
			if lambdaBirth[i] == 0 {
				lambdaBirth[i] = lambda
			}
		}
	}
}

// stampDeath updates the death lambda for points already carrying cid;
// successive merges at a lower lambda raise the recorded death point,
// matching the λ-ordering the dendrogram merges arrive in.
func stampDeath(labels []int, lambdaDeath []float64, cid int, lambda float64) {
	for i, l := range labels {
		if l == cid {
			lambdaDeath[i] = lambda
		}
	}
}

// buildResult turns flat labels and per-point lambda bounds into Result's
// cluster statistics: Confidence = round(max(0, 1-avgOutlierScore), 4)
// where a point's outlier score approximates GLOSH as how early (in core
// distance terms) it fell out of its cluster relative to the cluster's
// own persistence.
func buildResult(ids []uuid.UUID, labels []int, core, lambdaBirth, lambdaDeath []float64) Result {
	clusterMembers := make(map[int][]int)
	for i, l := range labels {
		if l > 0 {
			clusterMembers[l] = append(clusterMembers[l], i)
		}
	}

	var clusters []Cluster
	var noise []uuid.UUID

	clusterIDs := make([]int, 0, len(clusterMembers))
	for cid := range clusterMembers {
		clusterIDs = append(clusterIDs, cid)
	}
	sort.Ints(clusterIDs)

	for _, cid := range clusterIDs {
		members := clusterMembers[cid]
		maxLambda := 0.0
		for _, idx := range members {
			if lambdaDeath[idx] > maxLambda {
				maxLambda = lambdaDeath[idx]
			}
			if lambdaBirth[idx] > maxLambda {
				maxLambda = lambdaBirth[idx]
			}
		}

		memberIDs := make([]uuid.UUID, 0, len(members))
		var sumOutlier float64
		for _, idx := range members {
			memberIDs = append(memberIDs, ids[idx])
			var score float64
			if maxLambda > 0 {
				score = 1 - (lambdaDeath[idx] / maxLambda)
				if score < 0 {
					score = 0
				}
			}
			sumOutlier += score
		}
		avgOutlier := 0.0
		if len(members) > 0 {
			avgOutlier = sumOutlier / float64(len(members))
		}

		clusters = append(clusters, Cluster{
			ID:               cid,
			MemberSegmentIDs: memberIDs,
			AvgOutlierScore:  round4(avgOutlier),
			Confidence:       round4(math.Max(0, 1-avgOutlier)),
		})
	}

	for i, l := range labels {
		if l <= noiseClusterID {
			noise = append(noise, ids[i])
		}
	}

	return Result{Clusters: clusters, NoiseSegmentIDs: noise}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
