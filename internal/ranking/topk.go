package ranking

// DefaultK is the number of results kept when no K is given
const DefaultK = 5

// TopK keeps the K best scored candidates seen during a scan, highest
// score first. Candidates with equal scores keep their arrival order: a
// later candidate never displaces an earlier one with the same score.
//
// TopK is not safe for concurrent use; callers that score in parallel must
// serialize Insert.
type TopK struct {
	k     int
	items []ScoredCandidate
}

// NewTopK creates a selector holding at most k candidates. A k below 1
// falls back to DefaultK.
func NewTopK(k int) *TopK {
	if k < 1 {
		k = DefaultK
	}
	return &TopK{
		k:     k,
		items: make([]ScoredCandidate, 0, k+1),
	}
}

// K returns the capacity of the selector
func (t *TopK) K() int {
	return t.k
}

// Len returns the number of candidates currently held
func (t *TopK) Len() int {
	return len(t.items)
}

// Min returns the lowest score held. ok is false while the list is empty.
func (t *TopK) Min() (score float64, ok bool) {
	if len(t.items) == 0 {
		return 0, false
	}
	return t.items[len(t.items)-1].Score, true
}

// Insert offers a candidate to the selector. It reports whether the
// candidate was kept.
func (t *TopK) Insert(c ScoredCandidate) bool {
	full := len(t.items) >= t.k
	if full && !(c.Score > t.items[len(t.items)-1].Score) {
		return false
	}

	// First position whose score is strictly lower than the candidate's.
	pos := len(t.items)
	for i, it := range t.items {
		if it.Score < c.Score {
			pos = i
			break
		}
	}

	t.items = append(t.items, ScoredCandidate{})
	copy(t.items[pos+1:], t.items[pos:])
	t.items[pos] = c

	if full {
		t.items = t.items[:t.k]
	}
	return true
}

// Results returns a copy of the held candidates, highest score first
func (t *TopK) Results() []ScoredCandidate {
	out := make([]ScoredCandidate, len(t.items))
	copy(out, t.items)
	return out
}
