package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChunkStorage) SaveChunks(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	// Badgerhold has no bulk upsert; one transaction per chunk is fine at ingest volumes
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = models.ChunkID(chunk.SourcePage, chunk.ChunkIndex)
		}
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *ChunkStorage) GetChunk(ctx context.Context, id string) (*models.KnowledgeChunk, error) {
	var chunk models.KnowledgeChunk
	if err := s.db.Store().Get(id, &chunk); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrChunkNotFound
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

// GetChunksByPage returns the chunks of one page ordered by chunk index
func (s *ChunkStorage) GetChunksByPage(ctx context.Context, sourcePage int) ([]*models.KnowledgeChunk, error) {
	var chunks []models.KnowledgeChunk
	query := badgerhold.Where("SourcePage").Eq(sourcePage).Index("SourcePage").SortBy("ChunkIndex")
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to find chunks for page %d: %w", sourcePage, err)
	}
	return toPointers(chunks), nil
}

func (s *ChunkStorage) ListChunks(ctx context.Context) ([]*models.KnowledgeChunk, error) {
	var chunks []models.KnowledgeChunk
	if err := s.db.Store().Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	return toPointers(chunks), nil
}

func (s *ChunkStorage) CountChunks(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.KnowledgeChunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

func (s *ChunkStorage) DeleteAllChunks(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.KnowledgeChunk{}, nil); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	s.logger.Info().Msg("Deleted all knowledge chunks")
	return nil
}

func toPointers(chunks []models.KnowledgeChunk) []*models.KnowledgeChunk {
	result := make([]*models.KnowledgeChunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result
}
