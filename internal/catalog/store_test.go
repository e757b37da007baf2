package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iishyfishyy/shoefinder/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItem(id string, seed float32) *Item {
	h := func(n int) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = seed + float32(i)/float32(n)
		}
		return out
	}
	return &Item{
		ID:        id,
		ImagePath: "/images/" + id + ".jpg",
		Meta:      map[string]interface{}{"brand": "acme", "size": "42"},
		Features: Features{
			Red:   h(8),
			Green: h(8),
			Blue:  h(8),
			LBP:   h(16),
			HOG:   h(32),
		},
		Colors: []Color{
			{RGB: [3]uint8{10, 20, 30}, Percentage: 60},
			{RGB: [3]uint8{200, 210, 220}, Percentage: 40},
		},
		Source:    "/catalog/" + id + ".yaml",
		UpdatedAt: time.Unix(1700000000, 0),
	}
}

// runStoreContract exercises the behavior every Store must share
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	features, err := s.CatalogFeatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, features)

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Put(ctx, sampleItem(id, float32(i))))
	}

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	want := sampleItem("a", 1)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ImagePath, got.ImagePath)
	assert.Equal(t, want.Features, got.Features)
	assert.Equal(t, want.Colors, got.Colors)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.UpdatedAt.Unix(), got.UpdatedAt.Unix())
	assert.Equal(t, "acme", got.Meta["brand"])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, "c", items[2].ID)

	// replace
	updated := sampleItem("b", 5)
	updated.Colors = updated.Colors[:1]
	updated.Features.HOG = nil
	require.NoError(t, s.Put(ctx, updated))
	got, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, got.Colors, 1)
	assert.Empty(t, got.Features.HOG)
	assert.Equal(t, updated.Features.Red, got.Features.Red)

	features, err = s.CatalogFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, "a", features[0].ItemID)
	assert.Equal(t, sampleItem("a", 1).Features.LBP, features[0].LBP)

	colors, err := s.CatalogDominantColors(ctx)
	require.NoError(t, err)
	require.Len(t, colors, 3)
	assert.Equal(t, ranking.DominantColorSet{
		{RGB: [3]uint8{10, 20, 30}, Percentage: 60},
		{RGB: [3]uint8{200, 210, 220}, Percentage: 40},
	}, colors["c"])

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	bad := sampleItem("", 0)
	assert.Error(t, s.Put(ctx, bad))
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sampleItem("persisted", 0.5)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, sampleItem("persisted", 0.5).Features, got.Features)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SHOEFINDER_TEST_REDIS")
	if addr == "" {
		t.Skip("SHOEFINDER_TEST_REDIS not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, 0, fmt.Sprintf("shoefinder-test-%d:", time.Now().UnixNano()))
	require.NoError(t, err)
	defer s.Close()
	defer s.Clear(ctx)

	runStoreContract(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(ctx, Options{Backend: BackendSQLite})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "cassandra"})
	assert.Error(t, err)
}

func TestEncodeVector(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
	assert.Len(t, encodeVector(v), 16)
}
