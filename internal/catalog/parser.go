package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported item file extensions. JSON files are read with the YAML
// decoder, which accepts JSON documents.
var itemExtensions = []string{".yaml", ".yml", ".json"}

// Parser reads item files
type Parser struct{}

// NewParser creates a new parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseError records an item file that could not be read
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads one item file. When the file has no id, the file name
// without its extension is used.
func (p *Parser) Parse(path string) (*Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	item, err := p.ParseBytes(data)
	if err != nil {
		return nil, err
	}

	if item.ID == "" {
		base := filepath.Base(path)
		item.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if item.ImagePath != "" && !filepath.IsAbs(item.ImagePath) {
		item.ImagePath = filepath.Join(filepath.Dir(path), item.ImagePath)
	}
	item.Source = path
	item.UpdatedAt = info.ModTime()

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// ParseBytes decodes an item document without validating it
func (p *Parser) ParseBytes(data []byte) (*Item, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	var item Item
	if err := yaml.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse item: %w", err)
	}
	return &item, nil
}

// ParseAll parses multiple files. Files that fail are returned as
// ParseErrors next to the items that parsed. A later file whose id
// repeats an earlier one is reported and dropped.
func (p *Parser) ParseAll(paths []string) ([]Item, []ParseError) {
	var items []Item
	var failed []ParseError
	seen := make(map[string]string)

	for _, path := range paths {
		item, err := p.Parse(path)
		if err != nil {
			failed = append(failed, ParseError{File: path, Err: err})
			continue
		}
		if first, ok := seen[item.ID]; ok {
			failed = append(failed, ParseError{
				File: path,
				Err:  fmt.Errorf("duplicate item id %q (already defined in %s)", item.ID, first),
			})
			continue
		}
		seen[item.ID] = path
		items = append(items, *item)
	}

	return items, failed
}

func isItemFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range itemExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
