package interfaces

import (
	"context"

	"github.com/ternarybob/maestro/internal/models"
)

// EmbeddingTask tells the embedding model how the vector will be used
type EmbeddingTask string

const (
	EmbeddingTaskQuery    EmbeddingTask = "RETRIEVAL_QUERY"
	EmbeddingTaskDocument EmbeddingTask = "RETRIEVAL_DOCUMENT"
)

// EmbeddingService turns text into a vector
type EmbeddingService interface {
	Embed(ctx context.Context, text string, task EmbeddingTask) ([]float32, error)
	Dimension() int
}

// VectorFilter narrows a vector query; zero values match everything
type VectorFilter struct {
	SourcePage int
}

// VectorIndex is a nearest-neighbour index over knowledge chunks
type VectorIndex interface {
	// Query returns up to topK chunks ranked by descending RelevanceScore
	Query(ctx context.Context, text string, topK int, filter *VectorFilter) ([]models.KnowledgeChunk, error)

	// Fetch returns the chunks for the given ids; unknown ids are skipped
	Fetch(ctx context.Context, ids []string) ([]models.KnowledgeChunk, error)

	// FetchByPrefix returns every chunk whose id starts with prefix, ordered by chunk index
	FetchByPrefix(ctx context.Context, prefix string) ([]models.KnowledgeChunk, error)

	// Upsert embeds (when needed) and stores chunks
	Upsert(ctx context.Context, chunks []*models.KnowledgeChunk) error
}

// Retriever runs the multi-query knowledge search
type Retriever interface {
	// Retrieve returns deduplicated, context-expanded passages grouped by page.
	// It never fails; lookups that error are treated as empty.
	Retrieve(ctx context.Context, queries []string) *models.RetrievalResult

	// Search runs Retrieve and renders the result for a tool response
	Search(ctx context.Context, queries []string) string
}
