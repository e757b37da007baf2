package ranking

import "math"

// ColorDistance returns the Euclidean distance between two RGB colors
func ColorDistance(a, b [3]uint8) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ColorMatch pairs one candidate color with the query color nearest to it
type ColorMatch struct {
	Candidate DominantColor `json:"candidate"`
	Query     DominantColor `json:"query"`
	Distance  float64       `json:"distance"`
}

// MatchColors pairs every candidate color, in candidate order, with the
// nearest color of the full query set. Query colors are not used up by a
// match, so one query color can be paired with several candidate colors.
// On equal distances the earlier query color wins.
func MatchColors(query, candidate DominantColorSet) []ColorMatch {
	if len(query) == 0 {
		return nil
	}

	matches := make([]ColorMatch, 0, len(candidate))
	for _, c := range candidate {
		best := 0
		bestDist := math.Inf(1)
		for i, q := range query {
			if d := ColorDistance(c.RGB, q.RGB); d < bestDist {
				bestDist = d
				best = i
			}
		}
		matches = append(matches, ColorMatch{
			Candidate: c,
			Query:     query[best],
			Distance:  bestDist,
		})
	}
	return matches
}

// Dissimilarity sums the distances of MatchColors. Smaller means more
// similar and identical sets give 0. Percentages are not taken into
// account. If either set is empty the result is +Inf.
func Dissimilarity(query, candidate DominantColorSet) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return math.Inf(1)
	}

	var total float64
	for _, m := range MatchColors(query, candidate) {
		total += m.Distance
	}
	return total
}
