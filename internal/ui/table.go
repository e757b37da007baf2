package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
)

// Row is one line of a ranking table
type Row struct {
	ItemID string
	Score  float64
	// Detail is printed after the score, e.g. the image path
	Detail string
}

// FormatScore renders a score; infinite dissimilarities read as n/a
func FormatScore(score float64) string {
	if math.IsInf(score, 0) || math.IsNaN(score) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", score)
}

// RenderRanking lays out rows as an aligned plain-text table
func RenderRanking(scoreLabel string, rows []Row) string {
	idWidth := len("item")
	for _, r := range rows {
		if len(r.ItemID) > idWidth {
			idWidth = len(r.ItemID)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%4s  %-*s  %12s\n", "#", idWidth, "item", scoreLabel)
	for i, r := range rows {
		line := fmt.Sprintf("%4d  %-*s  %12s", i+1, idWidth, r.ItemID, FormatScore(r.Score))
		if r.Detail != "" {
			line += "  " + r.Detail
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// ShowRanking prints a ranking table with a highlighted header
func ShowRanking(title, scoreLabel string, rows []Row) {
	ShowSection(title)
	if len(rows) == 0 {
		ShowWarning("No matching items")
		return
	}

	lines := strings.Split(strings.TrimRight(RenderRanking(scoreLabel, rows), "\n"), "\n")
	header := color.New(color.Bold)
	best := color.New(color.FgGreen)

	header.Println(lines[0])
	for i, line := range lines[1:] {
		if i == 0 {
			best.Println(line)
			continue
		}
		fmt.Println(line)
	}
}
