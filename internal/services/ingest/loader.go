package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var pageDigits = regexp.MustCompile(`\d+`)

// Page is one corpus page read from disk
type Page struct {
	Number int
	Path   string
	Text   string
}

// LoadPages reads every file in dir with one of the extensions as a page.
// The page number is the last run of digits in the file name; files without
// digits are numbered after the highest numbered page in name order.
func LoadPages(dir string, extensions []string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	pages := make([]Page, 0, len(names))
	seen := make(map[int]string)
	var unnumbered []string
	highest := 0

	for _, name := range names {
		number, ok := pageNumber(name)
		if !ok {
			unnumbered = append(unnumbered, name)
			continue
		}
		if other, dup := seen[number]; dup {
			return nil, fmt.Errorf("page %d is defined by both %s and %s", number, other, name)
		}
		seen[number] = name
		if number > highest {
			highest = number
		}
		pages = append(pages, Page{Number: number, Path: filepath.Join(dir, name)})
	}
	for _, name := range unnumbered {
		highest++
		pages = append(pages, Page{Number: highest, Path: filepath.Join(dir, name)})
	}

	for i := range pages {
		text, err := readPage(pages[i].Path)
		if err != nil {
			return nil, err
		}
		pages[i].Text = text
	}

	sort.Slice(pages, func(a, b int) bool { return pages[a].Number < pages[b].Number })
	return pages, nil
}

// pageNumber extracts the page number from a file name; 0 is not a page
func pageNumber(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	matches := pageDigits.FindAllString(base, -1)
	if len(matches) == 0 {
		return 0, false
	}
	number, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil || number < 1 {
		return 0, false
	}
	return number, true
}

func readPage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read page %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		converter := md.NewConverter("", true, nil)
		converted, err := converter.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("failed to convert page %s: %w", path, err)
		}
		return strings.TrimSpace(converted), nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}
