package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fooConfig struct {
	B int
	A string
	M map[string]int
}

func TestHashConfig_FieldOrderIndependent(t *testing.T) {
	h1 := HashConfig(struct {
		A string
		B int
	}{A: "x", B: 1})
	h2 := HashConfig(struct {
		B int
		A string
	}{B: 1, A: "x"})

	assert.Equal(t, h1, h2)
}

func TestHashConfig_MapKeyOrderIndependent(t *testing.T) {
	h1 := HashConfig(map[string]int{"a": 1, "b": 2, "c": 3})
	h2 := HashConfig(map[string]int{"c": 3, "b": 2, "a": 1})

	assert.Equal(t, h1, h2)
}

func TestHashConfig_DifferentValuesHashDifferently(t *testing.T) {
	h1 := HashConfig(fooConfig{B: 1, A: "x", M: map[string]int{"k": 1}})
	h2 := HashConfig(fooConfig{B: 2, A: "x", M: map[string]int{"k": 1}})

	assert.NotEqual(t, h1, h2)
}

func TestHashConfig_NestedMapsAreOrderIndependent(t *testing.T) {
	h1 := HashConfig(fooConfig{B: 1, A: "x", M: map[string]int{"k1": 1, "k2": 2}})
	h2 := HashConfig(fooConfig{B: 1, A: "x", M: map[string]int{"k2": 2, "k1": 1}})

	assert.Equal(t, h1, h2)
}

func TestHashConfig_IsDeterministicAcrossCalls(t *testing.T) {
	cfg := fooConfig{B: 7, A: "y", M: map[string]int{"z": 9, "a": 1}}
	h1 := HashConfig(cfg)
	h2 := HashConfig(cfg)

	assert.Equal(t, h1, h2)
}
