package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlItem = `id: boot-001
image_path: images/boot-001.jpg
meta:
  brand: acme
  category: boot
  price: 89
features:
  red: [0.1, 0.2, 0.3, 0.4]
  green: [0.4, 0.3, 0.2, 0.1]
  blue: [0.2, 0.2, 0.3, 0.3]
  lbp: [0, 0.5, 1]
  hog: [0.25, 0.75]
dominant_colors:
  - rgb: [10, 10, 10]
    percentage: 50
  - rgb: [200, 200, 200]
    percentage: 50
`

const jsonItem = `{
  "meta": {"brand": "zephyr", "category": "sneaker"},
  "features": {"red": [1, 2], "green": [2, 1], "blue": [1, 1], "lbp": [0, 1], "hog": [1, 0]},
  "dominant_colors": [{"rgb": [255, 0, 0], "percentage": 100}]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParser_Parse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "boot.yaml", yamlItem)

	item, err := NewParser().Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "boot-001", item.ID)
	assert.Equal(t, filepath.Join(dir, "images", "boot-001.jpg"), item.ImagePath)
	assert.Equal(t, "acme", item.Meta["brand"])
	assert.Equal(t, 89, item.Meta["price"])
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, item.Features.Red)
	assert.Equal(t, []float32{0.25, 0.75}, item.Features.HOG)
	require.Len(t, item.Colors, 2)
	assert.Equal(t, [3]uint8{200, 200, 200}, item.Colors[1].RGB)
	assert.Equal(t, float32(50), item.Colors[1].Percentage)
	assert.Equal(t, path, item.Source)
	assert.False(t, item.UpdatedAt.IsZero())
}

func TestParser_ParseJSONUsesFileName(t *testing.T) {
	path := writeFile(t, t.TempDir(), "runner-7.json", jsonItem)

	item, err := NewParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "runner-7", item.ID)
	assert.Equal(t, "zephyr", item.Meta["brand"])
	assert.Equal(t, []float32{1, 2}, item.Features.Red)
	assert.Equal(t, [3]uint8{255, 0, 0}, item.Colors[0].RGB)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "  \n"},
		{"bad yaml", "id: [unclosed"},
		{"color out of range", "id: x\ndominant_colors:\n  - rgb: [300, 0, 0]\n"},
		{"color wrong arity", "id: x\ndominant_colors:\n  - rgb: [1, 2]\n"},
		{"bad percentage", "id: x\ndominant_colors:\n  - rgb: [1, 2, 3]\n    percentage: 140\n"},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "item.yaml", tt.content)
			_, err := NewParser().Parse(path)
			assert.Error(t, err)
		})
	}
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", yamlItem)
	writeFile(t, dir, "b.json", jsonItem)
	writeFile(t, dir, "README.md", "# catalog")
	writeFile(t, dir, "README.yaml", "id: readme")
	writeFile(t, dir, "_template.yaml", "id: template")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "broken.yml", "id: [")
	writeFile(t, dir, "dup.yml", "id: boot-001\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0755))

	items, failed, err := NewLoader().LoadAll(dir)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "boot-001", items[0].ID)
	assert.Equal(t, "b", items[1].ID)

	require.Len(t, failed, 2)
	assert.Equal(t, filepath.Join(dir, "broken.yml"), failed[0].File)
	assert.Equal(t, filepath.Join(dir, "dup.yml"), failed[1].File)
	assert.Contains(t, failed[1].Error(), "duplicate item id")
}

func TestLoader_MissingDir(t *testing.T) {
	_, _, err := NewLoader().LoadAll(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
