package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	HistoryFileName = "history.json"
	// MaxEntries bounds the file; the oldest entries are dropped first
	MaxEntries = 500
)

// Ranking modes recorded in Entry.Mode
const (
	ModeSimilarity = "similarity"
	ModeColors     = "colors"
)

// Result is one ranked item of a recorded run
type Result struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// Entry represents one ranking run
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"mode"`
	Query     string    `json:"query"`
	Filter    string    `json:"filter,omitempty"`
	K         int       `json:"k,omitempty"`
	Results   []Result  `json:"results"`
	// Opened is the item shown in the viewer after the run, if any
	Opened string `json:"opened,omitempty"`
}

// History manages the ranking history
type History struct {
	Entries []Entry `json:"entries"`

	path string
}

// GetHistoryPath returns the path to the history file
func GetHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".shoefinder", HistoryFileName), nil
}

// Load reads the history from the default path
func Load() (*History, error) {
	historyPath, err := GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(historyPath)
}

// LoadFrom reads the history at historyPath. A missing file gives an
// empty history that will be saved to historyPath.
func LoadFrom(historyPath string) (*History, error) {
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		return &History{Entries: []Entry{}, path: historyPath}, nil
	}

	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var hist History
	if err := json.Unmarshal(data, &hist); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	hist.path = historyPath

	return &hist, nil
}

// Save writes the history back to the file it was loaded from
func (h *History) Save() error {
	if h.path == "" {
		p, err := GetHistoryPath()
		if err != nil {
			return err
		}
		h.path = p
	}

	// Ensure directory exists
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// AddEntry appends an entry, dropping the oldest beyond MaxEntries
func (h *History) AddEntry(entry Entry) {
	h.Entries = append(h.Entries, entry)
	if over := len(h.Entries) - MaxEntries; over > 0 {
		h.Entries = append([]Entry(nil), h.Entries[over:]...)
	}
}

// Recent returns up to n entries, newest first
func (h *History) Recent(n int) []Entry {
	if n <= 0 || n > len(h.Entries) {
		n = len(h.Entries)
	}
	out := make([]Entry, 0, n)
	for i := len(h.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.Entries[i])
	}
	return out
}

// NewEntry creates a new history entry
func NewEntry(mode, query, filter string, k int, results []Result) Entry {
	return Entry{
		Timestamp: time.Now(),
		Mode:      mode,
		Query:     query,
		Filter:    filter,
		K:         k,
		Results:   results,
	}
}
