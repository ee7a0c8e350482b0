package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadPages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page-002.md", "Segunda página\n")
	writeFile(t, dir, "pagina 1.txt", "Primera página")
	writeFile(t, dir, "intro.html", "<h1>Intro</h1><p>Hola <b>mundo</b></p>")
	writeFile(t, dir, "scan-7.pdf", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub-9.md"), 0755))

	pages, err := LoadPages(dir, []string{".md", ".txt", ".HTML"})
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "Primera página", pages[0].Text)
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, "Segunda página", pages[1].Text)
	assert.Equal(t, 3, pages[2].Number)
	assert.Contains(t, pages[2].Text, "mundo")
	assert.NotContains(t, pages[2].Text, "<p>")
	assert.Equal(t, filepath.Join(dir, "intro.html"), pages[2].Path)
}

func TestLoadPages_DuplicateNumbers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "p1.md", "a")
	writeFile(t, dir, "p001.txt", "b")

	_, err := LoadPages(dir, []string{".md", ".txt"})
	assert.ErrorContains(t, err, "page 1")
}

func TestLoadPages_MissingDir(t *testing.T) {
	_, err := LoadPages(filepath.Join(t.TempDir(), "missing"), []string{".md"})
	assert.Error(t, err)
}

func TestPageNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"page-012.md", 12, true},
		{"rne-2024-p5.md", 5, true},
		{"intro.md", 0, false},
		{"page-0.md", 0, false},
	}
	for _, tt := range tests {
		number, ok := pageNumber(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, number, tt.name)
	}
}
