package clustering

import (
	"math"
	"sync"

	"github.com/alitto/pond"
	"gonum.org/v1/gonum/mat"
)

// euclidean returns the Euclidean distance between two equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cosine-similarity(a, b), treating an all-zero
// vector as maximally distant from everything but itself.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		if na == 0 && nb == 0 {
			return 0
		}
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return 1 - cos
}

// l2Normalize returns a copy of v scaled to unit L2 norm; a zero vector is
// returned unchanged.
func l2Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// distanceMatrix builds the full symmetric n x n distance matrix for
// vectors, parallelizing row computation across a pond pool sized to
// GOMAXPROCS (spec §4.5 phase 2).
func distanceMatrix(vectors [][]float64, metric func(a, b []float64) float64, pool *pond.WorkerPool) *mat.Dense {
	n := len(vectors)
	m := mat.NewDense(n, n, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			type cell struct {
				j int
				d float64
			}
			row := make([]cell, 0, n-i-1)
			for j := i + 1; j < n; j++ {
				row = append(row, cell{j: j, d: metric(vectors[i], vectors[j])})
			}
			mu.Lock()
			for _, c := range row {
				m.Set(i, c.j, c.d)
				m.Set(c.j, i, c.d)
			}
			mu.Unlock()
		})
	}
	wg.Wait()

	return m
}
