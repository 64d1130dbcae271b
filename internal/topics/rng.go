package topics

import "math/rand/v2"

// gibbsRNG is a small seeded uniform source for the collapsed Gibbs
// sampler, independent per Fit call so concurrent topic-extraction runs
// never share state.
type gibbsRNG struct {
	r *rand.Rand
}

func newGibbsRNG(seed int64) *gibbsRNG {
	return &gibbsRNG{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed>>32)|1))}
}

func (g *gibbsRNG) Float64() float64 {
	return g.r.Float64()
}
