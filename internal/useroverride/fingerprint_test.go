package useroverride

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFingerprint_OrderIndependent(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	f1 := Fingerprint([]uuid.UUID{a, b, c})
	f2 := Fingerprint([]uuid.UUID{c, a, b})
	f3 := Fingerprint([]uuid.UUID{b, c, a})

	assert.Equal(t, f1, f2)
	assert.Equal(t, f1, f3)
}

func TestFingerprint_DifferentMembersDiffer(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	f1 := Fingerprint([]uuid.UUID{a, b})
	f2 := Fingerprint([]uuid.UUID{a, c})

	assert.NotEqual(t, f1, f2)
}

func TestFingerprint_DoesNotMutateInput(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	original := append([]uuid.UUID{}, ids...)

	_ = Fingerprint(ids)

	assert.Equal(t, original, ids)
}

func TestFingerprint_StableUnderShuffle(t *testing.T) {
	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
	}
	want := Fingerprint(ids)

	shuffled := append([]uuid.UUID{}, ids...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	assert.Equal(t, want, Fingerprint(shuffled))
}
