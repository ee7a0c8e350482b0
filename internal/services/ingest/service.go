package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
	"golang.org/x/sync/errgroup"
)

// Report summarizes one ingestion run
type Report struct {
	Pages    int
	Chunks   int
	Skipped  int // Pages without text
	Duration time.Duration
}

// Service loads corpus pages, chunks them and upserts the chunks into the vector index
type Service struct {
	storage  interfaces.ChunkStorage
	index    interfaces.VectorIndex
	splitter *Splitter
	config   *common.IngestConfig
	logger   arbor.ILogger
}

// NewService creates a new ingestion service
func NewService(storage interfaces.ChunkStorage, index interfaces.VectorIndex, config *common.IngestConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		index:    index,
		splitter: NewSplitter(config.ChunkSize, config.ChunkOverlap),
		config:   config,
		logger:   logger,
	}
}

// Chunks splits a page into knowledge chunks with 1-based indices
func (s *Service) Chunks(page Page) []*models.KnowledgeChunk {
	texts := s.splitter.Split(page.Text)
	chunks := make([]*models.KnowledgeChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &models.KnowledgeChunk{
			ID:         models.ChunkID(page.Number, i+1),
			SourcePage: page.Number,
			ChunkIndex: i + 1,
			Text:       text,
		})
	}
	return chunks
}

// IngestDir ingests every page of dir. With reset the existing corpus is removed first,
// otherwise pages are upserted over existing chunks with the same ids.
func (s *Service) IngestDir(ctx context.Context, dir string, reset bool) (*Report, error) {
	pages, err := LoadPages(dir, s.config.Extensions)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := s.storage.DeleteAllChunks(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset corpus: %w", err)
		}
	}
	return s.Ingest(ctx, pages)
}

// Ingest chunks and upserts pages, embedding up to Concurrency pages at a time
func (s *Service) Ingest(ctx context.Context, pages []Page) (*Report, error) {
	start := time.Now()
	report := &Report{}

	concurrency := s.config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	counts := make([]int, len(pages))
	for i, page := range pages {
		chunks := s.Chunks(page)
		if len(chunks) == 0 {
			report.Skipped++
			s.logger.Warn().Int("page", page.Number).Str("path", page.Path).Msg("Page has no text, skipping")
			continue
		}
		counts[i] = len(chunks)

		g.Go(func() error {
			if err := s.index.Upsert(gctx, chunks); err != nil {
				return fmt.Errorf("page %d: %w", page.Number, err)
			}
			s.logger.Debug().Int("page", page.Number).Int("chunks", len(chunks)).Msg("Page ingested")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}

	for _, n := range counts {
		if n > 0 {
			report.Pages++
			report.Chunks += n
		}
	}
	report.Duration = time.Since(start)

	s.logger.Info().
		Int("pages", report.Pages).
		Int("chunks", report.Chunks).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Corpus ingestion completed")

	return report, nil
}
