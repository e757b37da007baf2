package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/metrics"
	"github.com/iishyfishyy/shoefinder/internal/ranking"
)

type Handler struct {
	store   catalog.Store
	manager *catalog.Manager
	ranker  *ranking.Ranker
	topK    int
	workers int
	debug   bool
}

func NewHandler(store catalog.Store, opts Options) *Handler {
	return &Handler{
		store:   store,
		manager: catalog.NewManagerWithDebug(store, opts.Debug),
		ranker:  ranking.NewRankerWithDebug(store, opts.Debug),
		topK:    opts.TopK,
		workers: opts.Workers,
		debug:   opts.Debug,
	}
}

func (h *Handler) RankSimilarity(c *fiber.Ctx) error {
	start := time.Now()
	var req SimilarityRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse json"})
	}

	if req.Features.Empty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "features are required"})
	}

	if req.TopK <= 0 {
		req.TopK = h.topK
	}

	ctx := c.UserContext()
	keep, err := h.manager.Select(ctx, req.Where)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	query := catalog.Item{Features: req.Features}
	res, err := h.ranker.Similar(ctx, query.FeatureVector(), ranking.Options{
		K:       req.TopK,
		Workers: h.workers,
		Keep:    keep,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	results := make([]RankedItem, 0, len(res.Ranked))
	for _, r := range res.Ranked {
		results = append(results, h.rankedItem(ctx, r))
	}

	problems := make([]string, 0, len(res.Skipped)+len(res.Degenerate))
	for _, e := range append(append([]*ranking.Error{}, res.Skipped...), res.Degenerate...) {
		problems = append(problems, string(e.Kind))
	}
	metrics.ObserveRank(metrics.ModeSimilarity, start, res.Scanned, problems)

	return c.JSON(SimilarityResponse{
		Results:    results,
		Best:       res.Best,
		Scanned:    res.Scanned,
		Skipped:    res.Skipped,
		Degenerate: res.Degenerate,
		Warnings:   h.warnings(ctx),
	})
}

func (h *Handler) RankColors(c *fiber.Ctx) error {
	start := time.Now()
	var req ColorRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse json"})
	}

	if req.Limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must not be negative"})
	}

	query := catalog.Item{ID: "query", Colors: req.Colors}
	if err := query.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx := c.UserContext()
	keep, err := h.manager.Select(ctx, req.Where)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.ranker.SimilarColors(ctx, query.DominantColors(), ranking.Options{Keep: keep})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ranked := res.Ranked
	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}

	results := make([]RankedItem, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, h.rankedItem(ctx, r))
	}

	problems := make([]string, 0, len(res.Invalid))
	for _, e := range res.Invalid {
		problems = append(problems, string(e.Kind))
	}
	metrics.ObserveRank(metrics.ModeColors, start, res.Scanned, problems)

	return c.JSON(ColorResponse{
		Results:  results,
		Scanned:  res.Scanned,
		Invalid:  res.Invalid,
		Warnings: h.warnings(ctx),
	})
}

func (h *Handler) ListItems(c *fiber.Ctx) error {
	items, err := h.store.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	metrics.CatalogItems.Set(float64(len(items)))

	summaries := make([]ItemSummary, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, ItemSummary{
			ID:        it.ID,
			ImagePath: it.ImagePath,
			Data:      it.Meta,
			Colors:    len(it.Colors),
			UpdatedAt: it.UpdatedAt,
		})
	}

	return c.JSON(ListResponse{Items: summaries, Count: len(summaries)})
}

func (h *Handler) GetItem(c *fiber.Ctx) error {
	item, err := h.store.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(item)
}

// PutItem stores the item under the id of the path
func (h *Handler) PutItem(c *fiber.Ctx) error {
	var item catalog.Item

	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse json"})
	}

	id := c.Params("id")
	if item.ID != "" && item.ID != id {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id in body does not match path"})
	}
	item.ID = id

	return h.save(c, &item, fiber.StatusOK)
}

func (h *Handler) CreateItem(c *fiber.Ctx) error {
	var item catalog.Item

	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse json"})
	}

	if item.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
	}

	_, err := h.store.Get(c.UserContext(), item.ID)
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "item already exists"})
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return h.save(c, &item, fiber.StatusCreated)
}

func (h *Handler) save(c *fiber.Ctx, item *catalog.Item, status int) error {
	item.Source = ""
	item.UpdatedAt = time.Now()
	if err := item.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx := c.UserContext()
	if err := h.store.Put(ctx, item); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	h.updateCount(ctx)

	if h.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Server: stored item %s\n", item.ID)
	}
	return c.Status(status).JSON(fiber.Map{"message": "item stored", "id": item.ID})
}

func (h *Handler) DeleteItem(c *fiber.Ctx) error {
	ctx := c.UserContext()
	err := h.store.Delete(ctx, c.Params("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	h.updateCount(ctx)

	return c.JSON(fiber.Map{"message": "item deleted"})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	n, err := h.store.Count(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "items": n})
}

// rankedItem attaches image path and metadata to a ranked candidate
func (h *Handler) rankedItem(ctx context.Context, r ranking.ScoredCandidate) RankedItem {
	out := RankedItem{ID: r.ItemID}
	if !math.IsInf(r.Score, 0) && !math.IsNaN(r.Score) {
		score := r.Score
		out.Score = &score
	}

	item, err := h.store.Get(ctx, r.ItemID)
	if err != nil {
		if h.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Server: no details for %s: %v\n", r.ItemID, err)
		}
		return out
	}
	out.ImagePath = item.ImagePath
	out.Data = item.Meta
	return out
}

// warnings reports an empty catalog
func (h *Handler) warnings(ctx context.Context) []*ranking.Error {
	n, err := h.store.Count(ctx)
	if err != nil || n > 0 {
		return nil
	}
	metrics.CatalogItems.Set(0)
	return []*ranking.Error{ranking.ErrEmptyCatalog}
}

func (h *Handler) updateCount(ctx context.Context) {
	if n, err := h.store.Count(ctx); err == nil {
		metrics.CatalogItems.Set(float64(n))
	}
}
