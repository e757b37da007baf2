package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader reads a directory of item files
type Loader struct {
	parser *Parser
	debug  bool
}

// NewLoader creates a new loader
func NewLoader() *Loader {
	return NewLoaderWithDebug(false)
}

// NewLoaderWithDebug creates a new loader with debug logging
func NewLoaderWithDebug(debug bool) *Loader {
	return &Loader{
		parser: NewParser(),
		debug:  debug,
	}
}

// Files returns the item files of dir in name order. README files and
// files starting with _ are skipped.
func (l *Loader) Files(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", dir)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isItemFile(e.Name()) {
			continue
		}
		basename := e.Name()
		// Skip README and files starting with _ (convention for meta files)
		if strings.HasPrefix(strings.ToUpper(basename), "README") || strings.HasPrefix(basename, "_") {
			if l.debug {
				fmt.Fprintf(os.Stderr, "[DEBUG] Loader: skipping meta file: %s\n", basename)
			}
			continue
		}
		files = append(files, filepath.Join(dir, basename))
	}
	sort.Strings(files)

	if l.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Loader: found %d item files in %s\n", len(files), dir)
	}
	return files, nil
}

// LoadAll parses every item file of dir. Files that fail to parse do not
// stop the load; they are returned as ParseErrors.
func (l *Loader) LoadAll(dir string) ([]Item, []ParseError, error) {
	files, err := l.Files(dir)
	if err != nil {
		return nil, nil, err
	}

	items, failed := l.parser.ParseAll(files)
	if l.debug {
		for _, f := range failed {
			fmt.Fprintf(os.Stderr, "[DEBUG] Loader: parse error (partial success): %v\n", &f)
		}
		fmt.Fprintf(os.Stderr, "[DEBUG] Loader: successfully parsed %d items\n", len(items))
	}

	return items, failed, nil
}

// LoadSingle parses a single item file
func (l *Loader) LoadSingle(path string) (*Item, error) {
	return l.parser.Parse(path)
}
