package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/atotto/clipboard"
	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/config"
	"github.com/iishyfishyy/shoefinder/internal/executor"
	"github.com/iishyfishyy/shoefinder/internal/history"
	"github.com/iishyfishyy/shoefinder/internal/ranking"
	"github.com/iishyfishyy/shoefinder/internal/ui"

	"github.com/spf13/cobra"
)

// rankSession holds what both ranking commands need
type rankSession struct {
	cfg     *config.Config
	store   catalog.Store
	query   *catalog.Item
	keep    func(string) bool
	manager *catalog.Manager
}

func newRankSession(ctx context.Context, queryFile string) (*rankSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	manager := catalog.NewManagerWithDebug(store, debug)
	query, err := manager.LoadQuery(queryFile)
	if err != nil {
		store.Close()
		return nil, err
	}

	keep, err := manager.Select(ctx, whereExpr)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &rankSession{cfg: cfg, store: store, query: query, keep: keep, manager: manager}, nil
}

// runRank ranks the catalog by weighted histogram similarity
func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newRankSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer s.store.Close()

	if s.query.Features.Empty() {
		return fmt.Errorf("query %s has no feature histograms", args[0])
	}

	k := s.cfg.Ranking.TopK
	if cmd.Flags().Changed("top-k") {
		k = topK
	}
	w := s.cfg.Ranking.Workers
	if cmd.Flags().Changed("workers") {
		w = workers
	}

	warnIfEmpty(ctx, s.store)

	ranker := ranking.NewRankerWithDebug(s.store, debug)
	res, err := ranker.Similar(ctx, s.query.FeatureVector(), ranking.Options{K: k, Workers: w, Keep: s.keep})
	if err != nil {
		return err
	}

	if k < 1 {
		k = ranking.DefaultK
	}
	ui.ShowRanking(fmt.Sprintf("Top %d similar to %s", k, s.query.ID), "score", s.rows(ctx, res.Ranked))

	if len(res.Skipped) > 0 {
		ui.ShowWarning(fmt.Sprintf("%d items skipped (histogram lengths differ from the query)", len(res.Skipped)))
	}
	if len(res.Degenerate) > 0 {
		ui.ShowInfo(fmt.Sprintf("%d flat histograms scored as zero correlation", len(res.Degenerate)))
	}
	if res.Best.Total.Found() && res.Best.Total.Score < 0 {
		ui.ShowWarning(fmt.Sprintf("Best match %s is negatively correlated (%.4f)", res.Best.Total.ItemID, res.Best.Total.Score))
	}

	entry := history.NewEntry(history.ModeSimilarity, args[0], whereExpr, k, historyResults(res.Ranked))
	return s.finish(ctx, res.Ranked, entry)
}

// runRankColors ranks the catalog by dominant color dissimilarity
func runRankColors(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if colorLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	s, err := newRankSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer s.store.Close()

	warnIfEmpty(ctx, s.store)

	ranker := ranking.NewRankerWithDebug(s.store, debug)
	res, err := ranker.SimilarColors(ctx, s.query.DominantColors(), ranking.Options{Keep: s.keep})
	if err != nil {
		return err
	}

	ranked := res.Ranked
	if colorLimit > 0 && colorLimit < len(ranked) {
		ranked = ranked[:colorLimit]
	}
	ui.ShowRanking(fmt.Sprintf("Closest colors to %s", s.query.ID), "distance", s.rows(ctx, ranked))

	for _, e := range res.Invalid {
		if e.ItemID == "" {
			ui.ShowWarning("The query has no dominant colors; every item is incomparable")
			continue
		}
		if debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Rank: %v\n", e)
		}
	}

	entry := history.NewEntry(history.ModeColors, args[0], whereExpr, colorLimit, historyResults(ranked))
	return s.finish(ctx, ranked, entry)
}

// rows attaches catalog details to the ranked ids
func (s *rankSession) rows(ctx context.Context, ranked []ranking.ScoredCandidate) []ui.Row {
	rows := make([]ui.Row, 0, len(ranked))
	for _, r := range ranked {
		row := ui.Row{ItemID: r.ItemID, Score: r.Score}
		if item, err := s.store.Get(ctx, r.ItemID); err == nil {
			row.Detail = item.ImagePath
		}
		rows = append(rows, row)
	}
	return rows
}

// finish runs the requested follow-up actions and records the run
func (s *rankSession) finish(ctx context.Context, ranked []ranking.ScoredCandidate, entry history.Entry) error {
	if len(ranked) > 0 {
		best := ranked[0].ItemID

		if copyBest {
			s.copyID(best)
		}
		if openBest {
			if s.open(ctx, best) {
				entry.Opened = best
			}
		}

		if !openBest && !copyBest && ui.IsInteractive() {
			ids := make([]string, len(ranked))
			for i, r := range ranked {
				ids[i] = r.ItemID
			}
			for {
				action, id, err := ui.ChooseResultAction(ids)
				if err != nil || action == ui.ActionDone {
					break
				}
				switch action {
				case ui.ActionOpen:
					if s.open(ctx, id) {
						entry.Opened = id
					}
				case ui.ActionCopy:
					s.copyID(id)
				}
			}
		}
	}

	hist, err := history.Load()
	if err != nil {
		ui.ShowWarning(fmt.Sprintf("Failed to load history: %v", err))
		return nil
	}
	hist.AddEntry(entry)
	if err := hist.Save(); err != nil {
		ui.ShowWarning(fmt.Sprintf("Failed to save history: %v", err))
	}
	return nil
}

func (s *rankSession) open(ctx context.Context, id string) bool {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		ui.ShowError(fmt.Sprintf("Failed to look up %s: %v", id, err))
		return false
	}
	if err := executor.OpenWithDebug(s.cfg.Viewer.Command, item.ImagePath, debug); err != nil {
		ui.ShowError(fmt.Sprintf("Failed to open %s: %v", id, err))
		return false
	}
	return true
}

func (s *rankSession) copyID(id string) {
	if err := clipboard.WriteAll(id); err != nil {
		ui.ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		return
	}
	ui.ShowSuccess(fmt.Sprintf("Copied %s to clipboard", id))
}

// historyResults converts a ranking for the history file. Incomparable
// items have no finite score and are left out.
func historyResults(ranked []ranking.ScoredCandidate) []history.Result {
	out := make([]history.Result, 0, len(ranked))
	for _, r := range ranked {
		if math.IsInf(r.Score, 0) || math.IsNaN(r.Score) {
			continue
		}
		out = append(out, history.Result{ItemID: r.ItemID, Score: r.Score})
	}
	return out
}
