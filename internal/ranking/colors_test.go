package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDissimilarity_SelfIsZero(t *testing.T) {
	sets := []DominantColorSet{
		{{RGB: [3]uint8{10, 20, 30}, Percentage: 100}},
		{
			{RGB: [3]uint8{0, 0, 0}, Percentage: 25},
			{RGB: [3]uint8{255, 255, 255}, Percentage: 25},
			{RGB: [3]uint8{120, 10, 200}, Percentage: 30},
			{RGB: [3]uint8{120, 10, 201}, Percentage: 20},
		},
	}
	for _, s := range sets {
		assert.Equal(t, 0.0, Dissimilarity(s, s))
	}
}

func TestDissimilarity_NearIdenticalPairs(t *testing.T) {
	cand := DominantColorSet{
		{RGB: [3]uint8{10, 10, 10}, Percentage: 50},
		{RGB: [3]uint8{200, 200, 200}, Percentage: 50},
	}
	query := DominantColorSet{
		{RGB: [3]uint8{12, 10, 10}, Percentage: 60},
		{RGB: [3]uint8{190, 200, 200}, Percentage: 40},
	}

	matches := MatchColors(query, cand)
	require.Len(t, matches, 2)
	assert.Equal(t, query[0], matches[0].Query)
	assert.Equal(t, query[1], matches[1].Query)

	// 2 + 10, percentages play no part
	assert.InDelta(t, 12.0, Dissimilarity(query, cand), 1e-9)
}

func TestMatchColors_QueryColorsAreReused(t *testing.T) {
	query := DominantColorSet{
		{RGB: [3]uint8{0, 0, 0}},
		{RGB: [3]uint8{255, 0, 0}},
	}
	cand := DominantColorSet{
		{RGB: [3]uint8{3, 4, 0}},
		{RGB: [3]uint8{0, 0, 0}},
		{RGB: [3]uint8{6, 8, 0}},
	}

	matches := MatchColors(query, cand)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, query[0], m.Query)
	}
	assert.InDelta(t, 5.0+0+10.0, Dissimilarity(query, cand), 1e-9)
}

func TestDissimilarity_IsAsymmetric(t *testing.T) {
	a := DominantColorSet{{RGB: [3]uint8{0, 0, 0}}}
	b := DominantColorSet{{RGB: [3]uint8{0, 0, 0}}, {RGB: [3]uint8{0, 0, 100}}}

	assert.Equal(t, 100.0, Dissimilarity(a, b))
	assert.Equal(t, 0.0, Dissimilarity(b, a))
}

func TestDissimilarity_EmptySets(t *testing.T) {
	set := DominantColorSet{{RGB: [3]uint8{1, 2, 3}}}

	assert.True(t, math.IsInf(Dissimilarity(nil, set), 1))
	assert.True(t, math.IsInf(Dissimilarity(set, DominantColorSet{}), 1))
	assert.Nil(t, MatchColors(nil, set))
}

func TestColorDistance(t *testing.T) {
	assert.Equal(t, 5.0, ColorDistance([3]uint8{0, 3, 0}, [3]uint8{4, 0, 0}))
	assert.InDelta(t, math.Sqrt(3*255*255), ColorDistance([3]uint8{0, 0, 0}, [3]uint8{255, 255, 255}), 1e-9)
}
