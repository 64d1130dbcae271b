package suggestions

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopTermName_RanksByFrequencyThenTermOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	texts := map[uuid.UUID]string{
		a: "apples apples bananas",
		b: "apples cherries cherries cherries",
	}
	lookup := func(id uuid.UUID) (string, bool) {
		text, ok := texts[id]
		return text, ok
	}

	name := topTermName([]uuid.UUID{a, b}, lookup)
	assert.Equal(t, "apples cherries bananas", name)
}

func TestTopTermName_CapsAtFourTerms(t *testing.T) {
	a := uuid.New()
	lookup := func(id uuid.UUID) (string, bool) {
		return "alpha beta gamma delta epsilon zeta", true
	}
	name := topTermName([]uuid.UUID{a}, lookup)
	assert.Len(t, splitWords(name), 4)
}

func TestTopTermName_UnresolvedSegmentsYieldUntitled(t *testing.T) {
	name := topTermName([]uuid.UUID{uuid.New()}, func(uuid.UUID) (string, bool) { return "", false })
	assert.Equal(t, "untitled project", name)
}

func TestMarshalUUIDs_RoundTrips(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	encoded, err := marshalUUIDs(ids)
	require.NoError(t, err)

	var decoded []string
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, ids[0].String(), decoded[0])
	assert.Equal(t, ids[1].String(), decoded[1])
}

func TestMarshalUUIDs_EmptyYieldsEmptyArray(t *testing.T) {
	encoded, err := marshalUUIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)
}

func splitWords(s string) []string {
	var words []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				words = append(words, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		words = append(words, cur)
	}
	return words
}
