package ranking

import "context"

// Channel indices into FeatureVector.RGB
const (
	ChannelRed = iota
	ChannelGreen
	ChannelBlue
)

// FeatureVector holds the precomputed visual signature of one catalog item
// (or of a query image). The slices are never modified by this package.
type FeatureVector struct {
	ItemID string

	// RGB holds one binned intensity histogram per color channel.
	RGB [3][]float32

	// LBP is the local binary pattern histogram, min-max normalized to [0,1].
	LBP []float32

	// HOG is the flattened histogram of oriented gradients descriptor,
	// min-max normalized to [0,1].
	HOG []float32
}

// DominantColor is one cluster center produced by dominant color extraction
type DominantColor struct {
	RGB        [3]uint8
	Percentage float32
}

// DominantColorSet is the ordered list of dominant colors of one image.
// Percentages are informational and need not sum to exactly 100.
type DominantColorSet []DominantColor

// ScoredCandidate is an item id with the score it obtained in one ranking call
type ScoredCandidate struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// Provider supplies the catalog for a ranking call
type Provider interface {
	// CatalogFeatures returns the feature vectors of every catalog item
	CatalogFeatures(ctx context.Context) ([]FeatureVector, error)

	// CatalogDominantColors returns the dominant color set of every catalog item, keyed by item id
	CatalogDominantColors(ctx context.Context) (map[string]DominantColorSet, error)
}
