package clustering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclidean_ZeroForIdenticalVectors(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.Equal(t, 0.0, euclidean(v, v))
}

func TestEuclidean_KnownDistance(t *testing.T) {
	assert.InDelta(t, 5.0, euclidean([]float64{0, 0}, []float64{3, 4}), 1e-9)
}

func TestCosineDistance_ZeroForIdenticalDirection(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.InDelta(t, 0.0, cosineDistance(v, v), 1e-9)
}

func TestCosineDistance_MaximalForOpposite(t *testing.T) {
	assert.InDelta(t, 2.0, cosineDistance([]float64{1, 0}, []float64{-1, 0}), 1e-9)
}

func TestCosineDistance_BothZeroVectorsAreIdentical(t *testing.T) {
	z := []float64{0, 0, 0}
	assert.Equal(t, 0.0, cosineDistance(z, z))
}

func TestCosineDistance_OneZeroVectorIsMaximallyDistant(t *testing.T) {
	assert.Equal(t, 1.0, cosineDistance([]float64{0, 0}, []float64{1, 1}))
}

func TestL2Normalize_ProducesUnitNorm(t *testing.T) {
	out := l2Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, out[0], 1e-9)
	assert.InDelta(t, 0.8, out[1], 1e-9)
}

func TestL2Normalize_ZeroVectorStaysZero(t *testing.T) {
	out := l2Normalize([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, out)
}
