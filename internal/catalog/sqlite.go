package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iishyfishyy/shoefinder/internal/ranking"
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Histogram modality names as stored in the histograms table
const (
	histRed   = "red"
	histGreen = "green"
	histBlue  = "blue"
	histLBP   = "lbp"
	histHOG   = "hog"
)

// SQLiteStore is a persistent catalog backed by SQLite
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore opens the database at dbPath, creating it and its schema if needed
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	version, err := store.getMetadata("version")
	if err != nil {
		if err := store.setMetadata("version", schemaVersion); err != nil {
			db.Close()
			return nil, err
		}
		if err := store.setMetadata("created_at", time.Now().Format(time.RFC3339)); err != nil {
			db.Close()
			return nil, err
		}
	} else if version != schemaVersion {
		db.Close()
		return nil, fmt.Errorf("unsupported catalog schema version %s (want %s)", version, schemaVersion)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		image_path TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		meta_json TEXT
	);

	CREATE TABLE IF NOT EXISTS histograms (
		item_id TEXT NOT NULL,
		modality TEXT NOT NULL,
		bins BLOB NOT NULL,
		PRIMARY KEY (item_id, modality)
	);

	CREATE TABLE IF NOT EXISTS dominant_colors (
		item_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		r INTEGER NOT NULL,
		g INTEGER NOT NULL,
		b INTEGER NOT NULL,
		percentage REAL NOT NULL,
		PRIMARY KEY (item_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_source ON items(source);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Put inserts or replaces an item with all of its features
func (s *SQLiteStore) Put(ctx context.Context, item *Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	metaJSON, err := json.Marshal(item.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteItem(ctx, tx, item.ID); err != nil {
		return err
	}

	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (id, image_path, source, updated_at, meta_json)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID, item.ImagePath, item.Source, updatedAt.Unix(), string(metaJSON)); err != nil {
		return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
	}

	hists := []struct {
		modality string
		bins     []float32
	}{
		{histRed, item.Features.Red},
		{histGreen, item.Features.Green},
		{histBlue, item.Features.Blue},
		{histLBP, item.Features.LBP},
		{histHOG, item.Features.HOG},
	}
	for _, h := range hists {
		if len(h.bins) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO histograms (item_id, modality, bins) VALUES (?, ?, ?)
		`, item.ID, h.modality, encodeVector(h.bins)); err != nil {
			return fmt.Errorf("failed to insert %s histogram of %s: %w", h.modality, item.ID, err)
		}
	}

	for i, c := range item.Colors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dominant_colors (item_id, position, r, g, b, percentage) VALUES (?, ?, ?, ?, ?, ?)
		`, item.ID, i, c.RGB[0], c.RGB[1], c.RGB[2], c.Percentage); err != nil {
			return fmt.Errorf("failed to insert dominant color of %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

func deleteItem(ctx context.Context, tx *sql.Tx, id string) error {
	for _, q := range []string{
		`DELETE FROM histograms WHERE item_id = ?`,
		`DELETE FROM dominant_colors WHERE item_id = ?`,
		`DELETE FROM items WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete item %s: %w", id, err)
		}
	}
	return nil
}

// Get returns one item by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Item, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.query(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// Delete removes an item and its features
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteItem(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns all items ordered by id
func (s *SQLiteStore) List(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(ctx, "")
}

// query loads one item when id is set, or all items otherwise
func (s *SQLiteStore) query(ctx context.Context, id string) ([]Item, error) {
	where, args := "", []interface{}{}
	if id != "" {
		where, args = " WHERE id = ?", []interface{}{id}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image_path, source, updated_at, meta_json FROM items`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}

	var items []Item
	index := make(map[string]int)
	for rows.Next() {
		var it Item
		var updatedAt int64
		var metaJSON sql.NullString

		if err := rows.Scan(&it.ID, &it.ImagePath, &it.Source, &updatedAt, &metaJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.UpdatedAt = time.Unix(updatedAt, 0)
		if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
			if err := json.Unmarshal([]byte(metaJSON.String), &it.Meta); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", it.ID, err)
			}
		}
		index[it.ID] = len(items)
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []Item{}, nil
	}

	if err := s.loadHistograms(ctx, items, index, id); err != nil {
		return nil, err
	}
	if err := s.loadColors(ctx, items, index, id); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SQLiteStore) loadHistograms(ctx context.Context, items []Item, index map[string]int, id string) error {
	q, args := `SELECT item_id, modality, bins FROM histograms`, []interface{}{}
	if id != "" {
		q, args = q+` WHERE item_id = ?`, []interface{}{id}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, modality string
		var blob []byte
		if err := rows.Scan(&itemID, &modality, &blob); err != nil {
			return fmt.Errorf("failed to scan histogram: %w", err)
		}
		i, ok := index[itemID]
		if !ok {
			continue
		}
		bins := decodeVector(blob)
		f := &items[i].Features
		switch modality {
		case histRed:
			f.Red = bins
		case histGreen:
			f.Green = bins
		case histBlue:
			f.Blue = bins
		case histLBP:
			f.LBP = bins
		case histHOG:
			f.HOG = bins
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadColors(ctx context.Context, items []Item, index map[string]int, id string) error {
	q, args := `SELECT item_id, r, g, b, percentage FROM dominant_colors`, []interface{}{}
	if id != "" {
		q, args = q+` WHERE item_id = ?`, []interface{}{id}
	}

	rows, err := s.db.QueryContext(ctx, q+` ORDER BY item_id, position`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		var c Color
		if err := rows.Scan(&itemID, &c.RGB[0], &c.RGB[1], &c.RGB[2], &c.Percentage); err != nil {
			return fmt.Errorf("failed to scan dominant color: %w", err)
		}
		if i, ok := index[itemID]; ok {
			items[i].Colors = append(items[i].Colors, c)
		}
	}
	return rows.Err()
}

// Count returns the number of stored items
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Clear removes all items
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM histograms;
		DELETE FROM dominant_colors;
		DELETE FROM items;
	`)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CatalogFeatures returns the feature vectors of all items ordered by id
func (s *SQLiteStore) CatalogFeatures(ctx context.Context) ([]ranking.FeatureVector, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return featureVectors(items), nil
}

// CatalogDominantColors returns the dominant colors of all items
func (s *SQLiteStore) CatalogDominantColors(ctx context.Context) (map[string]ranking.DominantColorSet, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return dominantColorSets(items), nil
}

// getMetadata retrieves a metadata value
func (s *SQLiteStore) getMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("metadata key not found: %s", key)
	}
	return value, err
}

// setMetadata stores a metadata value
func (s *SQLiteStore) setMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO metadata (key, value)
		VALUES (?, ?)
	`, key, value)
	return err
}

// encodeVector encodes a float32 slice to little-endian binary
func encodeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// decodeVector decodes little-endian binary data to a float32 slice
func decodeVector(b []byte) []float32 {
	buf := bytes.NewReader(b)
	v := make([]float32, len(b)/4)
	binary.Read(buf, binary.LittleEndian, &v)
	return v
}
