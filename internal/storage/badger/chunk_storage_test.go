package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

func TestChunkStorage_SaveAndGet(t *testing.T) {
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	chunks := []*models.KnowledgeChunk{
		{SourcePage: 3, ChunkIndex: 2, Text: "second", Embedding: []float32{0, 1}},
		{SourcePage: 3, ChunkIndex: 1, Text: "first", Embedding: []float32{1, 0}},
		{SourcePage: 4, ChunkIndex: 1, Text: "other page"},
	}
	require.NoError(t, storage.SaveChunks(ctx, chunks))
	assert.Equal(t, "3-2", chunks[0].ID)

	chunk, err := storage.GetChunk(ctx, "3-1")
	require.NoError(t, err)
	assert.Equal(t, "first", chunk.Text)
	assert.Equal(t, []float32{1, 0}, chunk.Embedding)

	_, err = storage.GetChunk(ctx, "9-9")
	assert.ErrorIs(t, err, interfaces.ErrChunkNotFound)

	page, err := storage.GetChunksByPage(ctx, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 1, page[0].ChunkIndex)
	assert.Equal(t, 2, page[1].ChunkIndex)

	count, err := storage.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestChunkStorage_UpsertReplaces(t *testing.T) {
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.SaveChunks(ctx, []*models.KnowledgeChunk{{SourcePage: 1, ChunkIndex: 1, Text: "old"}}))
	require.NoError(t, storage.SaveChunks(ctx, []*models.KnowledgeChunk{{SourcePage: 1, ChunkIndex: 1, Text: "new"}}))

	all, err := storage.ListChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].Text)
}

func TestChunkStorage_DeleteAll(t *testing.T) {
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.SaveChunks(ctx, []*models.KnowledgeChunk{
		{SourcePage: 1, ChunkIndex: 1, Text: "a"},
		{SourcePage: 1, ChunkIndex: 2, Text: "b"},
	}))
	require.NoError(t, storage.DeleteAllChunks(ctx))

	count, err := storage.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManager_OnDisk(t *testing.T) {
	dir := t.TempDir()
	config := &common.BadgerConfig{Path: dir + "/db"}

	manager, err := NewManager(arbor.NewLogger(), config)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = manager.ListStorage().LPush(ctx, "conversation:1", "hello")
	require.NoError(t, err)
	require.NoError(t, manager.ChunkStorage().SaveChunks(ctx, []*models.KnowledgeChunk{{SourcePage: 1, ChunkIndex: 1, Text: "a"}}))
	require.NoError(t, manager.RunGarbageCollection(0.5))
	require.NoError(t, manager.Close())

	reopened, err := NewManager(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer reopened.Close()

	values, err := reopened.ListStorage().LRange(ctx, "conversation:1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, values)

	count, err := reopened.ChunkStorage().CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
