package ranking

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoresOf(cs []ScoredCandidate) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Score
	}
	return out
}

func idsOf(cs []ScoredCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ItemID
	}
	return out
}

func TestTopK_Scenario(t *testing.T) {
	top := NewTopK(2)
	for i, s := range []float64{0.5, 0.9, 0.3, 0.95} {
		top.Insert(ScoredCandidate{ItemID: fmt.Sprint(i), Score: s})
	}
	assert.Equal(t, []float64{0.95, 0.9}, scoresOf(top.Results()))
	assert.Equal(t, []string{"3", "1"}, idsOf(top.Results()))
}

func TestTopK_AppendsLowerScoresWhileNotFull(t *testing.T) {
	top := NewTopK(3)
	top.Insert(ScoredCandidate{ItemID: "a", Score: 0.9})
	top.Insert(ScoredCandidate{ItemID: "b", Score: 0.1})
	top.Insert(ScoredCandidate{ItemID: "c", Score: 0.5})

	assert.Equal(t, []string{"a", "c", "b"}, idsOf(top.Results()))
}

func TestTopK_TiesKeepArrivalOrder(t *testing.T) {
	top := NewTopK(3)
	top.Insert(ScoredCandidate{ItemID: "first", Score: 0.5})
	top.Insert(ScoredCandidate{ItemID: "high", Score: 0.8})
	top.Insert(ScoredCandidate{ItemID: "second", Score: 0.5})

	assert.Equal(t, []string{"high", "first", "second"}, idsOf(top.Results()))

	// Full list: an equal score to the minimum is not enough to enter.
	kept := top.Insert(ScoredCandidate{ItemID: "third", Score: 0.5})
	assert.False(t, kept)
	assert.Equal(t, []string{"high", "first", "second"}, idsOf(top.Results()))

	// A higher score goes after equal entries and evicts the last one.
	kept = top.Insert(ScoredCandidate{ItemID: "top", Score: 0.8})
	assert.True(t, kept)
	assert.Equal(t, []string{"high", "top", "first"}, idsOf(top.Results()))
}

func TestTopK_DefaultK(t *testing.T) {
	assert.Equal(t, DefaultK, NewTopK(0).K())
	assert.Equal(t, DefaultK, NewTopK(-3).K())
	assert.Equal(t, 7, NewTopK(7).K())

	_, ok := NewTopK(1).Min()
	assert.False(t, ok)
}

func TestTopK_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		k := 1 + r.Intn(8)
		n := r.Intn(40)

		top := NewTopK(k)
		all := make([]float64, n)
		for i := 0; i < n; i++ {
			// coarse scores so ties are frequent
			all[i] = float64(r.Intn(10)) / 10
			top.Insert(ScoredCandidate{ItemID: fmt.Sprint(i), Score: all[i]})
		}

		got := top.Results()
		require.Len(t, got, min(n, k))
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Score > got[j].Score }))

		if len(got) == 0 {
			continue
		}
		minScore, ok := top.Min()
		require.True(t, ok)

		kept := make(map[string]bool, len(got))
		for _, c := range got {
			kept[c.ItemID] = true
		}
		for i, s := range all {
			if !kept[fmt.Sprint(i)] {
				assert.LessOrEqual(t, s, minScore, "excluded candidate %d outranks the list minimum", i)
			}
		}

		// The result equals a stable descending sort of the input cut at k.
		want := make([]ScoredCandidate, n)
		for i, s := range all {
			want[i] = ScoredCandidate{ItemID: fmt.Sprint(i), Score: s}
		}
		sort.SliceStable(want, func(i, j int) bool { return want[i].Score > want[j].Score })
		assert.Equal(t, want[:len(got)], got)
	}
}
