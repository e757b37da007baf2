package ranking

import "math"

// Modality weights of the total similarity score. They sum to 1.
const (
	WeightRGB = 0.3
	WeightLBP = 0.3
	WeightHOG = 0.4
)

// Breakdown is the result of scoring one candidate against a query
type Breakdown struct {
	// Channels holds the red, green and blue histogram correlations
	Channels [3]float64 `json:"channels"`
	// Color is the mean of the three channel correlations
	Color float64 `json:"color"`
	LBP   float64 `json:"lbp"`
	HOG   float64 `json:"hog"`
	Total float64 `json:"total"`

	// Degenerate lists the modalities whose correlation was undefined
	// (zero variance on either side) and was therefore set to 0.
	Degenerate []string `json:"degenerate,omitempty"`
}

// Combine applies the fixed modality weights
func Combine(color, lbp, hog float64) float64 {
	return WeightRGB*color + WeightLBP*lbp + WeightHOG*hog
}

// Score compares a candidate feature vector with the query. Every modality
// must have the same length on both sides; otherwise a DimensionMismatch
// error is returned and the candidate should be skipped.
//
// The HOG descriptor is compared with the same histogram correlation as
// the other modalities, not with cosine similarity.
func Score(query, candidate FeatureVector) (Breakdown, error) {
	if err := checkDimensions(query, candidate); err != nil {
		return Breakdown{}, err
	}

	var b Breakdown
	var colorSum float64
	for ch := 0; ch < 3; ch++ {
		r, ok := correlation(query.RGB[ch], candidate.RGB[ch])
		if !ok {
			b.Degenerate = append(b.Degenerate, channelModality[ch])
		}
		b.Channels[ch] = r
		colorSum += r
	}
	b.Color = colorSum / 3

	var ok bool
	if b.LBP, ok = correlation(query.LBP, candidate.LBP); !ok {
		b.Degenerate = append(b.Degenerate, ModalityLBP)
	}
	if b.HOG, ok = correlation(query.HOG, candidate.HOG); !ok {
		b.Degenerate = append(b.Degenerate, ModalityHOG)
	}

	b.Total = Combine(b.Color, b.LBP, b.HOG)
	return b, nil
}

func checkDimensions(query, candidate FeatureVector) error {
	for ch := 0; ch < 3; ch++ {
		if len(query.RGB[ch]) != len(candidate.RGB[ch]) {
			return newDimensionMismatch(candidate.ItemID, channelModality[ch], len(query.RGB[ch]), len(candidate.RGB[ch]))
		}
	}
	if len(query.LBP) != len(candidate.LBP) {
		return newDimensionMismatch(candidate.ItemID, ModalityLBP, len(query.LBP), len(candidate.LBP))
	}
	if len(query.HOG) != len(candidate.HOG) {
		return newDimensionMismatch(candidate.ItemID, ModalityHOG, len(query.HOG), len(candidate.HOG))
	}
	return nil
}

// Correlation returns the histogram correlation coefficient of a and b in
// [-1, 1], where 1 means the two distributions have the same shape. It
// returns 0 when either histogram is constant or empty. The slices must
// have equal length.
func Correlation(a, b []float32) float64 {
	r, _ := correlation(a, b)
	return r
}

// correlation reports ok=false when the coefficient is undefined
func correlation(a, b []float32) (float64, bool) {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0, false
	}

	// A constant histogram can leave rounding residue in the variance, so
	// detect it from the raw values instead.
	constA, constB := true, true
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += float64(a[i])
		sumB += float64(b[i])
		if a[i] != a[0] {
			constA = false
		}
		if b[i] != b[0] {
			constB = false
		}
	}
	if constA || constB {
		return 0, false
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0, false
	}

	r := cov / math.Sqrt(varA*varB)
	// keep rounding noise inside the documented range
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}
