package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	up   = []float32{1, 2, 3, 4}
	down = []float32{4, 3, 2, 1}
)

func seededStore(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	items := []*catalog.Item{
		{
			ID:        "twin",
			ImagePath: "/img/twin.jpg",
			Meta:      map[string]interface{}{"brand": "acme"},
			Features:  catalog.Features{Red: up, Green: up, Blue: up, LBP: up, HOG: up},
			Colors:    []catalog.Color{{RGB: [3]uint8{10, 10, 10}, Percentage: 100}},
		},
		{
			ID:       "opposite",
			Meta:     map[string]interface{}{"brand": "zephyr"},
			Features: catalog.Features{Red: down, Green: down, Blue: down, LBP: down, HOG: down},
			Colors:   []catalog.Color{{RGB: [3]uint8{200, 10, 10}, Percentage: 100}},
		},
		{
			ID:       "short",
			Meta:     map[string]interface{}{"brand": "acme"},
			Features: catalog.Features{Red: up, Green: up, Blue: up, LBP: up[:2], HOG: up},
		},
	}
	for _, it := range items {
		require.NoError(t, store.Put(ctx, it))
	}
	return store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

func resultIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["results"].([]any)
	require.True(t, ok, "results missing: %v", body)

	ids := make([]string, len(raw))
	for i, r := range raw {
		ids[i] = r.(map[string]any)["id"].(string)
	}
	return ids
}

func TestRankSimilarity(t *testing.T) {
	s := New(seededStore(t), Options{TopK: 5})

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/rank/similarity", SimilarityRequest{
		Features: catalog.Features{Red: up, Green: up, Blue: up, LBP: up, HOG: up},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"twin", "opposite"}, resultIDs(t, body))
	assert.Equal(t, float64(2), body["scanned"])

	first := body["results"].([]any)[0].(map[string]any)
	assert.InDelta(t, 1.0, first["score"].(float64), 1e-9)
	assert.Equal(t, "/img/twin.jpg", first["image_path"])
	assert.Equal(t, "acme", first["metadata"].(map[string]any)["brand"])

	skipped := body["skipped"].([]any)
	require.Len(t, skipped, 1)
	assert.Equal(t, "short", skipped[0].(map[string]any)["item_id"])
	assert.Equal(t, string(ranking.KindDimensionMismatch), skipped[0].(map[string]any)["kind"])

	best := body["best"].(map[string]any)
	assert.Equal(t, "twin", best["total"].(map[string]any)["item_id"])
}

func TestRankSimilarity_KAndFilter(t *testing.T) {
	s := New(seededStore(t), Options{TopK: 5, Workers: 4})

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/rank/similarity", SimilarityRequest{
		Features: catalog.Features{Red: up, Green: up, Blue: up, LBP: up, HOG: up},
		TopK:     1,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"twin"}, resultIDs(t, body))

	status, body = doJSON(t, s, http.MethodPost, "/api/v1/rank/similarity", SimilarityRequest{
		Features: catalog.Features{Red: up, Green: up, Blue: up, LBP: up, HOG: up},
		Where:    `item.meta.brand == "zephyr"`,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"opposite"}, resultIDs(t, body))

	status, _ = doJSON(t, s, http.MethodPost, "/api/v1/rank/similarity", SimilarityRequest{
		Features: catalog.Features{LBP: up},
		Where:    `item.meta.brand ==`,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRankSimilarity_BadRequest(t *testing.T) {
	s := New(seededStore(t), Options{})

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/rank/similarity", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "features are required", body["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rank/similarity", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRankSimilarity_EmptyCatalog(t *testing.T) {
	s := New(catalog.NewMemoryStore(), Options{})

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/rank/similarity", SimilarityRequest{
		Features: catalog.Features{LBP: up},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, resultIDs(t, body))

	warnings := body["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, string(ranking.KindEmptyCatalog), warnings[0].(map[string]any)["kind"])
}

func TestRankColors(t *testing.T) {
	store := seededStore(t)
	s := New(store, Options{})

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/rank/colors", ColorRequest{
		Colors: []catalog.Color{{RGB: [3]uint8{12, 10, 10}, Percentage: 100}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"twin", "opposite", "short"}, resultIDs(t, body))

	results := body["results"].([]any)
	assert.InDelta(t, 2.0, results[0].(map[string]any)["score"].(float64), 1e-9)
	assert.Nil(t, results[2].(map[string]any)["score"])

	invalid := body["invalid"].([]any)
	require.Len(t, invalid, 1)
	assert.Equal(t, "short", invalid[0].(map[string]any)["item_id"])

	status, body = doJSON(t, s, http.MethodPost, "/api/v1/rank/colors", ColorRequest{
		Colors: []catalog.Color{{RGB: [3]uint8{12, 10, 10}}},
		Limit:  1,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"twin"}, resultIDs(t, body))

	status, _ = doJSON(t, s, http.MethodPost, "/api/v1/rank/colors", ColorRequest{Limit: -1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestItemsCRUD(t *testing.T) {
	s := New(catalog.NewMemoryStore(), Options{})

	item := catalog.Item{
		ID:       "new",
		Meta:     map[string]interface{}{"category": "boot"},
		Features: catalog.Features{LBP: up},
	}

	status, _ := doJSON(t, s, http.MethodPost, "/api/v1/items", item)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = doJSON(t, s, http.MethodPost, "/api/v1/items", item)
	assert.Equal(t, http.StatusConflict, status)

	status, body := doJSON(t, s, http.MethodGet, "/api/v1/items/new", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "new", body["id"])

	item.Meta["category"] = "sneaker"
	status, _ = doJSON(t, s, http.MethodPut, "/api/v1/items/new", item)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, s, http.MethodPut, "/api/v1/items/other", item)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, s, http.MethodGet, "/api/v1/items", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
	listed := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "sneaker", listed["metadata"].(map[string]any)["category"])

	status, _ = doJSON(t, s, http.MethodDelete, "/api/v1/items/new", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, s, http.MethodDelete, "/api/v1/items/new", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, s, http.MethodGet, "/api/v1/items/new", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRateLimit(t *testing.T) {
	s := New(catalog.NewMemoryStore(), Options{RateLimit: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		status, _ := doJSON(t, s, http.MethodGet, "/api/v1/items", nil)
		assert.Equal(t, http.StatusOK, status)
	}
	status, body := doJSON(t, s, http.MethodGet, "/api/v1/items", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", body["error"])

	// health and metrics are outside the limited group
	status, _ = doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(seededStore(t), Options{})
	doJSON(t, s, http.MethodPost, "/api/v1/rank/colors", ColorRequest{
		Colors: []catalog.Color{{RGB: [3]uint8{1, 2, 3}}},
	})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "shoefinder_rank_requests_total")
}
