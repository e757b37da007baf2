package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/iishyfishyy/shoefinder/internal/ranking"
)

// MemoryStore keeps the catalog in process memory
type MemoryStore struct {
	items map[string]Item
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Item),
	}
}

// Put inserts or replaces an item
func (m *MemoryStore) Put(ctx context.Context, item *Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[item.ID] = *item
	return nil
}

// Get returns an item by id
func (m *MemoryStore) Get(ctx context.Context, id string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

// Delete removes an item by id
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// List returns all items ordered by id
func (m *MemoryStore) List(ctx context.Context) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Count returns the number of stored items
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// Clear removes all items
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]Item)
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

// CatalogFeatures returns the feature vectors of all items ordered by id
func (m *MemoryStore) CatalogFeatures(ctx context.Context) ([]ranking.FeatureVector, error) {
	items, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return featureVectors(items), nil
}

// CatalogDominantColors returns the dominant colors of all items
func (m *MemoryStore) CatalogDominantColors(ctx context.Context) (map[string]ranking.DominantColorSet, error) {
	items, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return dominantColorSets(items), nil
}
