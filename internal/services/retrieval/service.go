package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
	"golang.org/x/sync/errgroup"
)

// Config controls fan-out and caps of one retrieval
type Config struct {
	TopK        int // Hits requested per query
	MaxHits     int // Hits kept after merge and rank
	Concurrency int // Parallel index calls
}

// NewConfig builds the retrieval configuration from application config
func NewConfig(config *common.RetrievalConfig) Config {
	return Config{
		TopK:        config.TopK,
		MaxHits:     config.MaxHits,
		Concurrency: config.Concurrency,
	}
}

// Service is the retrieval engine: multi-query search, merge, rank,
// neighbour expansion and grouping by page.
type Service struct {
	index  interfaces.VectorIndex
	config Config
	logger arbor.ILogger
}

// NewService creates a new retrieval service
func NewService(index interfaces.VectorIndex, config Config, logger arbor.ILogger) *Service {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.MaxHits <= 0 {
		config.MaxHits = 8
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	return &Service{
		index:  index,
		config: config,
		logger: logger,
	}
}

// Retrieve runs every query against the index and assembles the grouped result.
// Failed lookups count as empty; the call itself never fails.
func (s *Service) Retrieve(ctx context.Context, queries []string) *models.RetrievalResult {
	queries = cleanQueries(queries)
	if len(queries) == 0 {
		return &models.RetrievalResult{Pages: []models.PageResult{}}
	}

	perQuery := s.search(ctx, queries)
	hits := mergeHits(perQuery)
	hits = rankHits(hits, s.config.MaxHits)

	blocks := s.expand(ctx, hits)
	result := groupByPage(hits, blocks)

	s.logger.Debug().
		Int("queries", len(queries)).
		Int("hits", len(hits)).
		Int("pages", len(result.Pages)).
		Msg("Knowledge retrieval completed")

	return result
}

// Search runs Retrieve and renders it for the generation oracle's tool channel
func (s *Service) Search(ctx context.Context, queries []string) string {
	return Render(s.Retrieve(ctx, queries))
}

// search issues each query independently; the result keeps query order then rank order
func (s *Service) search(ctx context.Context, queries []string) [][]models.KnowledgeChunk {
	perQuery := make([][]models.KnowledgeChunk, len(queries))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, query := range queries {
		g.Go(func() error {
			hits, err := s.index.Query(ctx, query, s.config.TopK, nil)
			if err != nil {
				s.logger.Warn().Err(err).Str("query", query).Msg("Knowledge query failed")
				return nil
			}
			perQuery[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	return perQuery
}

// mergeHits flattens per-query hits keyed by (page, chunk); the first occurrence wins
func mergeHits(perQuery [][]models.KnowledgeChunk) []models.KnowledgeChunk {
	seen := make(map[models.ChunkKey]bool)
	merged := make([]models.KnowledgeChunk, 0)

	for _, hits := range perQuery {
		for _, hit := range hits {
			if hit.ChunkIndex < 1 {
				continue
			}
			if seen[hit.Key()] {
				continue
			}
			seen[hit.Key()] = true
			merged = append(merged, hit)
		}
	}

	return merged
}

// rankHits orders hits by descending score and keeps at most limit.
// Equal scores keep first-seen order.
func rankHits(hits []models.KnowledgeChunk, limit int) []models.KnowledgeChunk {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].RelevanceScore > hits[j].RelevanceScore
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// expand rebuilds the local paragraph of each hit from chunk-1, chunk and chunk+1
func (s *Service) expand(ctx context.Context, hits []models.KnowledgeChunk) []string {
	type neighbour struct {
		hit    int
		offset int
	}

	var (
		mu    sync.Mutex
		texts = make(map[neighbour]string)
	)

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, hit := range hits {
		for offset := -1; offset <= 1; offset++ {
			index := hit.ChunkIndex + offset
			if index < 1 {
				continue
			}
			g.Go(func() error {
				id := models.ChunkID(hit.SourcePage, index)
				chunks, err := s.index.Fetch(ctx, []string{id})
				if err != nil {
					s.logger.Warn().Err(err).Str("chunk_id", id).Msg("Neighbour fetch failed")
					return nil
				}
				if len(chunks) == 0 {
					return nil
				}
				mu.Lock()
				texts[neighbour{hit: i, offset: offset}] = chunks[0].Text
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	blocks := make([]string, len(hits))
	for i, hit := range hits {
		parts := make([]string, 0, 3)
		for offset := -1; offset <= 1; offset++ {
			text, ok := texts[neighbour{hit: i, offset: offset}]
			if !ok && offset == 0 {
				// The hit itself came back from the query, so its text is known
				text, ok = hit.Text, hit.Text != ""
			}
			if ok {
				parts = append(parts, text)
			}
		}
		blocks[i] = strings.Join(parts, " ")
	}
	return blocks
}

// groupByPage collects unique blocks per page, pages in first-seen rank order
func groupByPage(hits []models.KnowledgeChunk, blocks []string) *models.RetrievalResult {
	result := &models.RetrievalResult{Pages: []models.PageResult{}}
	pageIndex := make(map[int]int)
	seen := make(map[int]map[string]bool)

	for i, hit := range hits {
		block := blocks[i]
		if strings.TrimSpace(block) == "" {
			continue
		}

		idx, ok := pageIndex[hit.SourcePage]
		if !ok {
			idx = len(result.Pages)
			pageIndex[hit.SourcePage] = idx
			seen[hit.SourcePage] = make(map[string]bool)
			result.Pages = append(result.Pages, models.PageResult{SourcePage: hit.SourcePage, Blocks: []string{}})
		}

		if seen[hit.SourcePage][block] {
			continue
		}
		seen[hit.SourcePage][block] = true
		result.Pages[idx].Blocks = append(result.Pages[idx].Blocks, block)
	}

	return result
}

func cleanQueries(queries []string) []string {
	cleaned := make([]string, 0, len(queries))
	for _, query := range queries {
		if query = strings.TrimSpace(query); query != "" {
			cleaned = append(cleaned, query)
		}
	}
	return cleaned
}
