package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/maestro/internal/models"
)

// ErrChunkNotFound is returned when a knowledge chunk does not exist
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStorage persists knowledge chunks and their embeddings
type ChunkStorage interface {
	SaveChunks(ctx context.Context, chunks []*models.KnowledgeChunk) error
	GetChunk(ctx context.Context, id string) (*models.KnowledgeChunk, error)
	GetChunksByPage(ctx context.Context, sourcePage int) ([]*models.KnowledgeChunk, error)
	ListChunks(ctx context.Context) ([]*models.KnowledgeChunk, error)
	CountChunks(ctx context.Context) (int, error)
	DeleteAllChunks(ctx context.Context) error
}

// StorageManager owns the database connection and the storages built on it
type StorageManager interface {
	ListStorage() ListStorage
	ChunkStorage() ChunkStorage

	// RunGarbageCollection reclaims value-log space; returns nil when there was nothing to rewrite
	RunGarbageCollection(discardRatio float64) error

	Close() error
}
