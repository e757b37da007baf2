package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Import(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", yamlItem)
	writeFile(t, dir, "b.json", jsonItem)
	writeFile(t, dir, "broken.yaml", "id: [")

	m := NewManager(NewMemoryStore())

	report, err := m.Import(ctx, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Len(t, report.Failed, 1)
	assert.False(t, report.UpToDate)

	// broken.yaml is never stored, so the directory keeps looking stale
	stale, reason, err := m.NeedsImport(ctx, dir)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Contains(t, reason, "broken.yaml")

	require.NoError(t, os.Remove(filepath.Join(dir, "broken.yaml")))
	stale, _, err = m.NeedsImport(ctx, dir)
	require.NoError(t, err)
	assert.False(t, stale)

	report, err = m.Import(ctx, dir, false)
	require.NoError(t, err)
	assert.True(t, report.UpToDate)
	assert.Zero(t, report.Imported)
}

func TestManager_ImportDetectsChanges(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", yamlItem)
	b := writeFile(t, dir, "b.json", jsonItem)

	store := NewMemoryStore()
	m := NewManager(store)
	_, err := m.Import(ctx, dir, false)
	require.NoError(t, err)

	// modified
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(a, later, later))
	stale, reason, err := m.NeedsImport(ctx, dir)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Contains(t, reason, "file modified")

	_, err = m.Import(ctx, dir, false)
	require.NoError(t, err)

	// deleted
	require.NoError(t, os.Remove(b))
	stale, reason, err = m.NeedsImport(ctx, dir)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Contains(t, reason, "file deleted")

	report, err := m.Import(ctx, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ImportForce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", yamlItem)

	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, &Item{ID: "api-only"}))

	m := NewManager(store)
	report, err := m.Import(ctx, dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestManager_Select(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, it := range filterItems() {
		require.NoError(t, store.Put(ctx, &it))
	}
	m := NewManager(store)

	keep, err := m.Select(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, keep)

	keep, err = m.Select(ctx, `item.meta.category == "boot"`)
	require.NoError(t, err)
	assert.True(t, keep("boot-1"))
	assert.True(t, keep("boot-2"))
	assert.False(t, keep("sneaker-1"))
	assert.False(t, keep("unknown"))

	_, err = m.Select(ctx, "item.meta.category ==")
	assert.Error(t, err)
}

func TestManager_LoadQuery(t *testing.T) {
	m := NewManager(NewMemoryStore())
	path := writeFile(t, t.TempDir(), "query.yaml", yamlItem)

	q, err := m.LoadQuery(path)
	require.NoError(t, err)
	fv := q.FeatureVector()
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, fv.RGB[0])
	assert.Len(t, q.DominantColors(), 2)

	_, err = m.LoadQuery(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
