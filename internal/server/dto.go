package server

import (
	"time"

	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/ranking"
)

type SimilarityRequest struct {
	Features catalog.Features `json:"features"`
	TopK     int              `json:"k"`
	Where    string           `json:"where"`
}

type SimilarityResponse struct {
	Results    []RankedItem        `json:"results"`
	Best       ranking.Diagnostics `json:"best"`
	Scanned    int                 `json:"scanned"`
	Skipped    []*ranking.Error    `json:"skipped,omitempty"`
	Degenerate []*ranking.Error    `json:"degenerate,omitempty"`
	Warnings   []*ranking.Error    `json:"warnings,omitempty"`
}

type ColorRequest struct {
	Colors []catalog.Color `json:"dominant_colors"`
	// Limit truncates the ranking; 0 returns every item
	Limit int    `json:"limit"`
	Where string `json:"where"`
}

type ColorResponse struct {
	Results  []RankedItem     `json:"results"`
	Scanned  int              `json:"scanned"`
	Invalid  []*ranking.Error `json:"invalid,omitempty"`
	Warnings []*ranking.Error `json:"warnings,omitempty"`
}

// RankedItem is one result. Score is null when the item could not be
// compared (an empty dominant color set).
type RankedItem struct {
	ID        string         `json:"id"`
	Score     *float64       `json:"score"`
	ImagePath string         `json:"image_path,omitempty"`
	Data      map[string]any `json:"metadata,omitempty"`
}

type ItemSummary struct {
	ID        string         `json:"id"`
	ImagePath string         `json:"image_path,omitempty"`
	Data      map[string]any `json:"metadata,omitempty"`
	Colors    int            `json:"dominant_colors"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type ListResponse struct {
	Items []ItemSummary `json:"items"`
	Count int           `json:"count"`
}
