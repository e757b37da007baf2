package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/iishyfishyy/shoefinder/internal/ranking"
)

// Item is one catalog entry: a shoe image with its precomputed features
type Item struct {
	ID        string                 `json:"id" yaml:"id"`
	ImagePath string                 `json:"image_path,omitempty" yaml:"image_path,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty" yaml:"meta,omitempty"`
	Features  Features               `json:"features" yaml:"features"`
	Colors    []Color                `json:"dominant_colors,omitempty" yaml:"dominant_colors,omitempty"`

	// Source is the item file the entry was imported from
	Source string `json:"source,omitempty" yaml:"-"`
	// UpdatedAt is the modification time of Source, or the time of the API write
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Features holds the histograms of one image
type Features struct {
	Red   []float32 `json:"red,omitempty" yaml:"red,omitempty"`
	Green []float32 `json:"green,omitempty" yaml:"green,omitempty"`
	Blue  []float32 `json:"blue,omitempty" yaml:"blue,omitempty"`
	LBP   []float32 `json:"lbp,omitempty" yaml:"lbp,omitempty"`
	HOG   []float32 `json:"hog,omitempty" yaml:"hog,omitempty"`
}

// Empty reports whether no histogram is present
func (f Features) Empty() bool {
	return len(f.Red) == 0 && len(f.Green) == 0 && len(f.Blue) == 0 && len(f.LBP) == 0 && len(f.HOG) == 0
}

// Color is one dominant color with its share of the image in percent
type Color struct {
	RGB        [3]uint8 `json:"rgb" yaml:"rgb"`
	Percentage float32  `json:"percentage" yaml:"percentage"`
}

// Validate checks the fields that the stores and rankers rely on
func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item id is required")
	}
	for name, h := range map[string][]float32{
		"red": it.Features.Red, "green": it.Features.Green, "blue": it.Features.Blue,
		"lbp": it.Features.LBP, "hog": it.Features.HOG,
	} {
		for i, v := range h {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("item %s: %s bin %d is not a finite number", it.ID, name, i)
			}
		}
	}
	for i, c := range it.Colors {
		if c.Percentage < 0 || c.Percentage > 100 {
			return fmt.Errorf("item %s: dominant color %d has percentage %.2f outside [0,100]", it.ID, i, c.Percentage)
		}
	}
	return nil
}

// FeatureVector converts the item for similarity ranking
func (it *Item) FeatureVector() ranking.FeatureVector {
	return ranking.FeatureVector{
		ItemID: it.ID,
		RGB:    [3][]float32{it.Features.Red, it.Features.Green, it.Features.Blue},
		LBP:    it.Features.LBP,
		HOG:    it.Features.HOG,
	}
}

// DominantColors converts the item for dominant color ranking
func (it *Item) DominantColors() ranking.DominantColorSet {
	set := make(ranking.DominantColorSet, len(it.Colors))
	for i, c := range it.Colors {
		set[i] = ranking.DominantColor{RGB: c.RGB, Percentage: c.Percentage}
	}
	return set
}

func featureVectors(items []Item) []ranking.FeatureVector {
	out := make([]ranking.FeatureVector, len(items))
	for i := range items {
		out[i] = items[i].FeatureVector()
	}
	return out
}

func dominantColorSets(items []Item) map[string]ranking.DominantColorSet {
	out := make(map[string]ranking.DominantColorSet, len(items))
	for i := range items {
		out[items[i].ID] = items[i].DominantColors()
	}
	return out
}
