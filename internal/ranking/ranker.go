package ranking

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Best is the single best item for one score
type Best struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// Found reports whether any candidate was recorded
func (b Best) Found() bool {
	return b.ItemID != ""
}

func (b *Best) offer(itemID string, score float64) {
	if !b.Found() || score > b.Score {
		b.ItemID = itemID
		b.Score = score
	}
}

// Diagnostics tracks the best item per score during a similarity scan.
// It does not influence the ranked list.
type Diagnostics struct {
	Total Best `json:"total"`
	Color Best `json:"color"`
	LBP   Best `json:"lbp"`
	HOG   Best `json:"hog"`
}

func (d *Diagnostics) record(itemID string, b Breakdown) {
	d.Total.offer(itemID, b.Total)
	d.Color.offer(itemID, b.Color)
	d.LBP.offer(itemID, b.LBP)
	d.HOG.offer(itemID, b.HOG)
}

// SimilarityResult is the outcome of a similarity scan
type SimilarityResult struct {
	// Ranked holds at most K candidates, highest total score first
	Ranked []ScoredCandidate `json:"ranked"`
	Best   Diagnostics       `json:"best"`

	// Scanned counts the candidates that were scored successfully
	Scanned int `json:"scanned"`
	// Skipped lists candidates excluded from the ranking
	Skipped []*Error `json:"skipped,omitempty"`
	// Degenerate lists modalities that were scored as 0 because a
	// histogram was constant. These candidates are still ranked.
	Degenerate []*Error `json:"degenerate,omitempty"`
}

// ColorResult is the outcome of a dominant color scan
type ColorResult struct {
	// Ranked holds every candidate, lowest dissimilarity first
	Ranked  []ScoredCandidate `json:"ranked"`
	Scanned int               `json:"scanned"`
	// Invalid lists empty color sets; those candidates are ranked last
	Invalid []*Error `json:"invalid,omitempty"`
}

type scan struct {
	top *TopK
	res SimilarityResult
}

func newScan(k, size int) *scan {
	return &scan{
		top: NewTopK(k),
		res: SimilarityResult{Ranked: make([]ScoredCandidate, 0, min(k, size))},
	}
}

func (s *scan) add(itemID string, b Breakdown, err error) {
	if err != nil {
		e := GetError(err)
		if e == nil {
			e = &Error{Kind: KindDimensionMismatch, ItemID: itemID, Message: err.Error()}
		}
		s.res.Skipped = append(s.res.Skipped, e)
		return
	}

	s.res.Scanned++
	for _, m := range b.Degenerate {
		s.res.Degenerate = append(s.res.Degenerate, &Error{
			Kind:     KindDegenerateHistogram,
			ItemID:   itemID,
			Modality: m,
			Message:  fmt.Sprintf("%s histogram has zero variance, correlation set to 0", m),
		})
	}
	s.top.Insert(ScoredCandidate{ItemID: itemID, Score: b.Total})
	s.res.Best.record(itemID, b)
}

func (s *scan) result() SimilarityResult {
	s.res.Ranked = append(s.res.Ranked, s.top.Results()...)
	return s.res
}

// RankBySimilarity scores every catalog item against the query and returns
// the k best, highest first. Candidates whose dimensions do not match the
// query are skipped and listed in the result. An empty catalog yields an
// empty ranking.
func RankBySimilarity(query FeatureVector, catalog []FeatureVector, k int) SimilarityResult {
	s := newScan(k, len(catalog))
	for _, cand := range catalog {
		b, err := Score(query, cand)
		s.add(cand.ItemID, b, err)
	}
	return s.result()
}

// RankBySimilarityParallel is RankBySimilarity with scoring spread over up
// to workers goroutines. Candidates are merged into the top-K list in
// catalog order afterwards, so the result equals the sequential one.
func RankBySimilarityParallel(ctx context.Context, query FeatureVector, catalog []FeatureVector, k, workers int) (SimilarityResult, error) {
	if err := ctx.Err(); err != nil {
		return SimilarityResult{}, err
	}
	if workers <= 1 || len(catalog) < 2 {
		return RankBySimilarity(query, catalog, k), nil
	}

	type scored struct {
		b   Breakdown
		err error
	}
	out := make([]scored, len(catalog))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(catalog) + workers - 1) / workers
	for start := 0; start < len(catalog); start += chunk {
		end := min(start+chunk, len(catalog))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i].b, out[i].err = Score(query, catalog[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimilarityResult{}, err
	}

	s := newScan(k, len(catalog))
	for i, cand := range catalog {
		s.add(cand.ItemID, out[i].b, out[i].err)
	}
	return s.result(), nil
}

// RankByDominantColor computes the dissimilarity of every catalog item to
// the query colors and returns all of them, most similar (smallest) first.
// Items with equal dissimilarity are ordered by id.
func RankByDominantColor(query DominantColorSet, catalog map[string]DominantColorSet) ColorResult {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := ColorResult{Ranked: make([]ScoredCandidate, 0, len(ids))}
	if len(query) == 0 && len(ids) > 0 {
		res.Invalid = append(res.Invalid, &Error{
			Kind:     KindInvalidDominantColorSet,
			Modality: ModalityColors,
			Message:  "query dominant color set is empty",
		})
	}

	for _, id := range ids {
		cand := catalog[id]
		d := Dissimilarity(query, cand)
		if len(cand) == 0 {
			res.Invalid = append(res.Invalid, &Error{
				Kind:     KindInvalidDominantColorSet,
				ItemID:   id,
				Modality: ModalityColors,
				Message:  "candidate dominant color set is empty",
			})
		} else if !math.IsInf(d, 1) {
			res.Scanned++
		}
		res.Ranked = append(res.Ranked, ScoredCandidate{ItemID: id, Score: d})
	}

	sort.SliceStable(res.Ranked, func(i, j int) bool {
		return res.Ranked[i].Score < res.Ranked[j].Score
	})
	return res
}

// Options tune a Ranker call
type Options struct {
	// K is the number of results of a similarity ranking
	K int
	// Workers spreads similarity scoring over goroutines when above 1
	Workers int
	// Keep, when set, restricts the catalog to the item ids it accepts
	Keep func(itemID string) bool
}

// Ranker runs rankings against the catalog of a Provider
type Ranker struct {
	provider Provider
	debug    bool
}

// NewRanker creates a ranker reading its catalog from provider
func NewRanker(provider Provider) *Ranker {
	return NewRankerWithDebug(provider, false)
}

// NewRankerWithDebug creates a ranker with debug logging
func NewRankerWithDebug(provider Provider, debug bool) *Ranker {
	return &Ranker{provider: provider, debug: debug}
}

// Similar ranks the catalog by weighted histogram similarity to query
func (r *Ranker) Similar(ctx context.Context, query FeatureVector, opts Options) (SimilarityResult, error) {
	catalog, err := r.provider.CatalogFeatures(ctx)
	if err != nil {
		return SimilarityResult{}, fmt.Errorf("failed to load catalog features: %w", err)
	}

	if opts.Keep != nil {
		kept := catalog[:0:0]
		for _, fv := range catalog {
			if opts.Keep(fv.ItemID) {
				kept = append(kept, fv)
			}
		}
		if r.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Ranker: filter kept %d of %d items\n", len(kept), len(catalog))
		}
		catalog = kept
	}

	if r.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Ranker: scoring %d items (k=%d, workers=%d)\n", len(catalog), opts.K, opts.Workers)
	}

	res, err := RankBySimilarityParallel(ctx, query, catalog, opts.K, opts.Workers)
	if err != nil {
		return SimilarityResult{}, err
	}

	if r.debug {
		r.logDiagnostics(res)
	}
	return res, nil
}

// SimilarColors ranks the catalog by dominant color dissimilarity to query
func (r *Ranker) SimilarColors(ctx context.Context, query DominantColorSet, opts Options) (ColorResult, error) {
	catalog, err := r.provider.CatalogDominantColors(ctx)
	if err != nil {
		return ColorResult{}, fmt.Errorf("failed to load catalog colors: %w", err)
	}

	if opts.Keep != nil {
		kept := make(map[string]DominantColorSet, len(catalog))
		for id, set := range catalog {
			if opts.Keep(id) {
				kept[id] = set
			}
		}
		catalog = kept
	}

	if r.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Ranker: matching %d query colors against %d items\n", len(query), len(catalog))
	}

	res := RankByDominantColor(query, catalog)
	if r.debug && len(res.Invalid) > 0 {
		fmt.Fprintf(os.Stderr, "[DEBUG] Ranker: %d invalid color sets\n", len(res.Invalid))
	}
	return res, nil
}

func (r *Ranker) logDiagnostics(res SimilarityResult) {
	fmt.Fprintf(os.Stderr, "[DEBUG] Ranker: scanned %d, skipped %d, degenerate %d\n",
		res.Scanned, len(res.Skipped), len(res.Degenerate))
	for _, e := range res.Skipped {
		fmt.Fprintf(os.Stderr, "[DEBUG] Ranker:   skipped %v\n", e)
	}

	best := []struct {
		name string
		b    Best
	}{
		{"total", res.Best.Total},
		{"color", res.Best.Color},
		{"lbp", res.Best.LBP},
		{"hog", res.Best.HOG},
	}
	for _, x := range best {
		if x.b.Found() {
			fmt.Fprintf(os.Stderr, "[DEBUG] Ranker: best %s correlation %.4f (item %s)\n", x.name, x.b.Score, x.b.ItemID)
		}
	}
}
