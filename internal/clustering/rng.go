package clustering

import "math/rand/v2"

// SeededRNG wraps a ChaCha8-backed PRNG so every clustering run gets its
// own independent stream — concurrent UMAP/KMeans runs never share state
// (spec §5).
type SeededRNG struct {
	r *rand.Rand
}

// NewSeededRNG derives a ChaCha8 seed deterministically from seed so the
// same seed always reproduces the same stream.
func NewSeededRNG(seed int64) *SeededRNG {
	var key [32]byte
	s := uint64(seed)
	for i := 0; i < 32; i += 8 {
		for b := 0; b < 8; b++ {
			key[i+b] = byte(s >> (8 * b))
		}
		s = s*6364136223846793005 + 1442695040888963407
	}
	src := rand.NewChaCha8(key)
	return &SeededRNG{r: rand.New(src)}
}

// NextFloat returns a uniform draw in [0, 1).
func (s *SeededRNG) NextFloat() float64 {
	return s.r.Float64()
}

// NextIntN returns a uniform draw in [0, n).
func (s *SeededRNG) NextIntN(n int) int {
	return s.r.IntN(n)
}

// Shuffle permutes indices [0, n) in place using the Fisher-Yates shuffle.
func (s *SeededRNG) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}
