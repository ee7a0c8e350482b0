package models

import (
	"fmt"
	"strconv"
	"strings"
)

// KnowledgeChunk is a fixed-size slice of an ingested corpus page.
// ChunkIndex is 1-based and contiguous within a page.
type KnowledgeChunk struct {
	ID             string    `json:"id"`
	SourcePage     int       `json:"pageIndex" badgerhold:"index"`
	ChunkIndex     int       `json:"chunkIndex"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"embedding,omitempty"`
	RelevanceScore float64   `json:"relevanceScore,omitempty"`
}

// ChunkID builds the storage id of a chunk: "<page>-<chunk>"
func ChunkID(sourcePage, chunkIndex int) string {
	return fmt.Sprintf("%d-%d", sourcePage, chunkIndex)
}

// PagePrefix is the id prefix shared by every chunk of a page
func PagePrefix(sourcePage int) string {
	return fmt.Sprintf("%d-", sourcePage)
}

// ParseChunkID splits a chunk id into page and chunk index
func ParseChunkID(id string) (int, int, error) {
	page, chunk, ok := strings.Cut(id, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid chunk id %q", id)
	}
	p, err := strconv.Atoi(page)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid page in chunk id %q: %w", id, err)
	}
	c, err := strconv.Atoi(chunk)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chunk index in chunk id %q: %w", id, err)
	}
	return p, c, nil
}

// ChunkKey identifies a chunk by page and index
type ChunkKey struct {
	SourcePage int
	ChunkIndex int
}

// Key returns the page/index key of the chunk
func (c KnowledgeChunk) Key() ChunkKey {
	return ChunkKey{SourcePage: c.SourcePage, ChunkIndex: c.ChunkIndex}
}

// PageResult is the assembled text of one source page
type PageResult struct {
	SourcePage int      `json:"sourcePage"`
	Blocks     []string `json:"blocks"`
}

// RetrievalResult is the grouped output of one knowledge search,
// pages ordered by first-seen relevance rank
type RetrievalResult struct {
	Pages []PageResult `json:"pages"`
}

// IsEmpty reports whether the result holds no text
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || len(r.Pages) == 0
}
