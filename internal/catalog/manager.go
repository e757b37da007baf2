package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manager coordinates importing item files into a store and selecting
// candidates for a ranking
type Manager struct {
	store  Store
	loader *Loader
	debug  bool
}

// ImportReport summarizes one Import call
type ImportReport struct {
	Imported int
	// Removed counts stored items whose file no longer exists
	Removed int
	Failed  []ParseError
	// UpToDate is set when nothing was imported because the store already
	// matches the directory
	UpToDate bool
	Duration time.Duration
}

// NewManager creates a manager over store
func NewManager(store Store) *Manager {
	return NewManagerWithDebug(store, false)
}

// NewManagerWithDebug creates a manager with debug logging
func NewManagerWithDebug(store Store, debug bool) *Manager {
	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Catalog: manager created (store=%T)\n", store)
	}
	return &Manager{
		store:  store,
		loader: NewLoaderWithDebug(debug),
		debug:  debug,
	}
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	return m.store
}

// Import parses the item files of dir and stores them. Unless force is
// set, the import is skipped when the store is already current with the
// directory. With force the store is cleared first.
func (m *Manager) Import(ctx context.Context, dir string, force bool) (ImportReport, error) {
	start := time.Now()
	var report ImportReport

	if !force {
		stale, reason, err := m.NeedsImport(ctx, dir)
		if err != nil {
			return report, err
		}
		if !stale {
			report.UpToDate = true
			return report, nil
		}
		if m.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Catalog: import needed: %s\n", reason)
		}
	}

	items, failed, err := m.loader.LoadAll(dir)
	if err != nil {
		return report, fmt.Errorf("failed to load items: %w", err)
	}
	report.Failed = failed

	if force {
		if err := m.store.Clear(ctx); err != nil {
			return report, fmt.Errorf("failed to clear store: %w", err)
		}
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := m.store.Put(ctx, &items[i]); err != nil {
			return report, fmt.Errorf("failed to store item %s: %w", items[i].ID, err)
		}
		report.Imported++
		if m.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Catalog:   - %s (%d colors, %s)\n",
				items[i].ID, len(items[i].Colors), items[i].Source)
		}
	}

	if !force {
		removed, err := m.removeOrphans(ctx, dir, items)
		if err != nil {
			return report, err
		}
		report.Removed = removed
	}

	report.Duration = time.Since(start)
	return report, nil
}

// removeOrphans deletes stored items that came from dir but are not in items
func (m *Manager) removeOrphans(ctx context.Context, dir string, items []Item) (int, error) {
	stored, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list items: %w", err)
	}

	current := make(map[string]bool, len(items))
	for _, it := range items {
		current[it.ID] = true
	}

	removed := 0
	for _, it := range stored {
		if it.Source == "" || filepath.Dir(it.Source) != filepath.Clean(dir) || current[it.ID] {
			continue
		}
		if err := m.store.Delete(ctx, it.ID); err != nil && err != ErrNotFound {
			return removed, fmt.Errorf("failed to remove item %s: %w", it.ID, err)
		}
		removed++
		if m.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Catalog: removed %s (file %s is gone)\n", it.ID, it.Source)
		}
	}
	return removed, nil
}

// NeedsImport compares the item files of dir with the stored items.
// It reports true with a reason when a file was added, modified or
// removed since the last import.
func (m *Manager) NeedsImport(ctx context.Context, dir string) (bool, string, error) {
	files, err := m.loader.Files(dir)
	if err != nil {
		return false, "", err
	}

	items, err := m.store.List(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to list items: %w", err)
	}

	stored := make(map[string]time.Time, len(items))
	for _, it := range items {
		if it.Source != "" {
			stored[it.Source] = it.UpdatedAt
		}
	}

	expected := make(map[string]bool, len(files))
	for _, file := range files {
		expected[file] = true

		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		updatedAt, ok := stored[file]
		if !ok {
			return true, fmt.Sprintf("new file added: %s", file), nil
		}
		if info.ModTime().Unix() != updatedAt.Unix() {
			return true, fmt.Sprintf("file modified: %s", file), nil
		}
	}

	for source := range stored {
		if filepath.Dir(source) == filepath.Clean(dir) && !expected[source] {
			return true, fmt.Sprintf("file deleted: %s", source), nil
		}
	}

	return false, "", nil
}

// LoadQuery reads a query item file
func (m *Manager) LoadQuery(path string) (*Item, error) {
	item, err := m.loader.LoadSingle(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load query %s: %w", path, err)
	}
	return item, nil
}

// Select compiles where and returns a predicate over item ids for the
// ranker. An empty expression returns a nil predicate.
func (m *Manager) Select(ctx context.Context, where string) (func(string) bool, error) {
	filter, err := NewFilter(where)
	if err != nil || filter == nil {
		return nil, err
	}

	items, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	ids := filter.Select(items)
	if m.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Catalog: filter %q selected %d of %d items\n", where, len(ids), len(items))
	}
	return func(id string) bool { return ids[id] }, nil
}
