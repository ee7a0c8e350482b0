package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
	"github.com/ternarybob/maestro/internal/storage/badger"
)

// recordingIndex stores upserted chunks in memory
type recordingIndex struct {
	mu     sync.Mutex
	chunks map[string]*models.KnowledgeChunk
	fail   int
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{chunks: map[string]*models.KnowledgeChunk{}}
}

func (r *recordingIndex) Query(ctx context.Context, text string, topK int, filter *interfaces.VectorFilter) ([]models.KnowledgeChunk, error) {
	return nil, nil
}

func (r *recordingIndex) Fetch(ctx context.Context, ids []string) ([]models.KnowledgeChunk, error) {
	return nil, nil
}

func (r *recordingIndex) FetchByPrefix(ctx context.Context, prefix string) ([]models.KnowledgeChunk, error) {
	return nil, nil
}

func (r *recordingIndex) Upsert(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 && chunks[0].SourcePage == r.fail {
		return errors.New("embedding quota exceeded")
	}
	for _, chunk := range chunks {
		r.chunks[chunk.ID] = chunk
	}
	return nil
}

func (r *recordingIndex) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.chunks))
	for id := range r.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newTestService(t *testing.T, index interfaces.VectorIndex, chunkSize int) (*Service, interfaces.ChunkStorage) {
	t.Helper()
	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	config := &common.IngestConfig{
		ChunkSize:    chunkSize,
		ChunkOverlap: 0,
		Extensions:   []string{".md", ".txt"},
		Concurrency:  2,
	}
	return NewService(manager.ChunkStorage(), index, config, arbor.NewLogger()), manager.ChunkStorage()
}

func TestChunks(t *testing.T) {
	service, _ := newTestService(t, newRecordingIndex(), 10)

	chunks := service.Chunks(Page{Number: 3, Text: "aaaa bbbb cccc"})
	require.Len(t, chunks, 2)
	assert.Equal(t, &models.KnowledgeChunk{ID: "3-1", SourcePage: 3, ChunkIndex: 1, Text: "aaaa bbbb"}, chunks[0])
	assert.Equal(t, &models.KnowledgeChunk{ID: "3-2", SourcePage: 3, ChunkIndex: 2, Text: "cccc"}, chunks[1])
}

func TestIngest(t *testing.T) {
	index := newRecordingIndex()
	service, _ := newTestService(t, index, 10)

	report, err := service.Ingest(context.Background(), []Page{
		{Number: 1, Text: "aaaa bbbb cccc"},
		{Number: 2, Text: "  "},
		{Number: 3, Text: "dddd"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"1-1", "1-2", "3-1"}, index.ids())
}

func TestIngest_UpsertFailure(t *testing.T) {
	index := newRecordingIndex()
	index.fail = 2
	service, _ := newTestService(t, index, 100)

	_, err := service.Ingest(context.Background(), []Page{
		{Number: 1, Text: "uno"},
		{Number: 2, Text: "dos"},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "page 2"))
}

func TestIngestDir_Reset(t *testing.T) {
	index := newRecordingIndex()
	service, storage := newTestService(t, index, 100)
	ctx := context.Background()

	require.NoError(t, storage.SaveChunks(ctx, []*models.KnowledgeChunk{{SourcePage: 40, ChunkIndex: 1, Text: "old"}}))

	dir := t.TempDir()
	writeFile(t, dir, "page-1.md", "Primera página")

	report, err := service.IngestDir(ctx, dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, []string{"1-1"}, index.ids())

	count, err := storage.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
