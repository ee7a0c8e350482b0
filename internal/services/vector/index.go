package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// Index implements interfaces.VectorIndex as an exact cosine scan over
// the chunk storage. The corpus is loaded once and kept in memory until
// the next Upsert.
type Index struct {
	storage  interfaces.ChunkStorage
	embedder interfaces.EmbeddingService
	logger   arbor.ILogger

	mu     sync.RWMutex
	corpus []*models.KnowledgeChunk
	loaded bool
}

// NewIndex creates a new vector index
func NewIndex(storage interfaces.ChunkStorage, embedder interfaces.EmbeddingService, logger arbor.ILogger) *Index {
	return &Index{
		storage:  storage,
		embedder: embedder,
		logger:   logger,
	}
}

// Query embeds text and returns the topK most similar chunks
func (i *Index) Query(ctx context.Context, text string, topK int, filter *interfaces.VectorFilter) ([]models.KnowledgeChunk, error) {
	if topK <= 0 {
		return []models.KnowledgeChunk{}, nil
	}

	query, err := i.embedder.Embed(ctx, text, interfaces.EmbeddingTaskQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	corpus, err := i.load(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]models.KnowledgeChunk, 0, len(corpus))
	for _, chunk := range corpus {
		if filter != nil && filter.SourcePage != 0 && chunk.SourcePage != filter.SourcePage {
			continue
		}
		score, err := CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			i.logger.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("Skipping chunk with mismatched embedding")
			continue
		}
		hit := withoutEmbedding(chunk)
		hit.RelevanceScore = score
		scored = append(scored, hit)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].RelevanceScore > scored[b].RelevanceScore
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Fetch returns the chunks for ids in the given order, skipping unknown ids
func (i *Index) Fetch(ctx context.Context, ids []string) ([]models.KnowledgeChunk, error) {
	chunks := make([]models.KnowledgeChunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := i.storage.GetChunk(ctx, id)
		if errors.Is(err, interfaces.ErrChunkNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chunk %s: %w", id, err)
		}
		chunks = append(chunks, withoutEmbedding(chunk))
	}
	return chunks, nil
}

// FetchByPrefix returns the chunks whose id starts with prefix.
// A "<page>-" prefix is answered from the page index.
func (i *Index) FetchByPrefix(ctx context.Context, prefix string) ([]models.KnowledgeChunk, error) {
	if page, ok := pageFromPrefix(prefix); ok {
		chunks, err := i.storage.GetChunksByPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		return stripAll(chunks), nil
	}

	all, err := i.storage.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	matched := make([]*models.KnowledgeChunk, 0)
	for _, chunk := range all {
		if strings.HasPrefix(chunk.ID, prefix) {
			matched = append(matched, chunk)
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		if matched[a].SourcePage != matched[b].SourcePage {
			return matched[a].SourcePage < matched[b].SourcePage
		}
		return matched[a].ChunkIndex < matched[b].ChunkIndex
	})
	return stripAll(matched), nil
}

// Upsert embeds chunks that carry no embedding yet and stores them
func (i *Index) Upsert(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if len(chunk.Embedding) > 0 {
			continue
		}
		embedding, err := i.embedder.Embed(ctx, chunk.Text, interfaces.EmbeddingTaskDocument)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", models.ChunkID(chunk.SourcePage, chunk.ChunkIndex), err)
		}
		chunk.Embedding = embedding
	}

	if err := i.storage.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	i.Invalidate()

	i.logger.Debug().Int("chunks", len(chunks)).Msg("Upserted knowledge chunks")
	return nil
}

// Invalidate drops the in-memory corpus; the next Query reloads it
func (i *Index) Invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.corpus = nil
	i.loaded = false
}

func (i *Index) load(ctx context.Context) ([]*models.KnowledgeChunk, error) {
	i.mu.RLock()
	if i.loaded {
		corpus := i.corpus
		i.mu.RUnlock()
		return corpus, nil
	}
	i.mu.RUnlock()

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.loaded {
		return i.corpus, nil
	}

	chunks, err := i.storage.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	i.corpus = chunks
	i.loaded = true

	i.logger.Info().Int("chunks", len(chunks)).Msg("Loaded knowledge corpus into vector index")
	return chunks, nil
}

// CosineSimilarity returns the cosine of the angle between a and b,
// 0 when either vector has zero magnitude
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
		aMag += float64(a[k]) * float64(a[k])
		bMag += float64(b[k]) * float64(b[k])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}

func pageFromPrefix(prefix string) (int, bool) {
	page, rest, ok := strings.Cut(prefix, "-")
	if !ok || rest != "" {
		return 0, false
	}
	n, err := strconv.Atoi(page)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func withoutEmbedding(chunk *models.KnowledgeChunk) models.KnowledgeChunk {
	out := *chunk
	out.Embedding = nil
	return out
}

func stripAll(chunks []*models.KnowledgeChunk) []models.KnowledgeChunk {
	out := make([]models.KnowledgeChunk, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, withoutEmbedding(chunk))
	}
	return out
}
