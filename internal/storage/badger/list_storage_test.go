package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
)

func TestListStorage_LPushOrdersNewestFirst(t *testing.T) {
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	n, err := storage.LPush(ctx, "k", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = storage.LPush(ctx, "k", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	values, err := storage.LRange(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, values)
}

func TestListStorage_LTrim(t *testing.T) {
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3", "4", "5"} {
		_, err := storage.LPush(ctx, "k", v)
		require.NoError(t, err)
	}

	require.NoError(t, storage.LTrim(ctx, "k", 0, 2))
	values, err := storage.LRange(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4", "3"}, values)

	// Trimming a missing key is a no-op
	require.NoError(t, storage.LTrim(ctx, "missing", 0, 2))

	// An empty range removes the list
	require.NoError(t, storage.LTrim(ctx, "k", 5, 10))
	values, err = storage.LRange(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestListStorage_LRangeIndices(t *testing.T) {
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	_, err := storage.LPush(ctx, "k", "a", "b", "c", "d")
	require.NoError(t, err)

	tests := []struct {
		name        string
		start, stop int
		expected    []string
	}{
		{"all", 0, -1, []string{"d", "c", "b", "a"}},
		{"head", 0, 1, []string{"d", "c"}},
		{"tail", -2, -1, []string{"b", "a"}},
		{"stop beyond length", 2, 100, []string{"b", "a"}},
		{"start beyond length", 10, 20, []string{}},
		{"inverted", 3, 1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := storage.LRange(ctx, "k", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestListStorage_MissingKey(t *testing.T) {
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	values, err := storage.LRange(ctx, "nope", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, values)

	err = storage.Expire(ctx, "nope", time.Hour)
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestListStorage_ExpirePreservedAcrossPush(t *testing.T) {
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	_, err := storage.LPush(ctx, "k", "a")
	require.NoError(t, err)

	ttl, err := storage.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	require.NoError(t, storage.Expire(ctx, "k", time.Hour))

	_, err = storage.LPush(ctx, "k", "b")
	require.NoError(t, err)
	require.NoError(t, storage.LTrim(ctx, "k", 0, 0))

	ttl, err = storage.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour+time.Second)
}

func TestListStorage_EntriesExpire(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for expiry")
	}
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	_, err := storage.LPush(ctx, "k", "a")
	require.NoError(t, err)
	require.NoError(t, storage.Expire(ctx, "k", time.Second))

	// Badger expiry has second granularity
	time.Sleep(2100 * time.Millisecond)

	values, err := storage.LRange(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestListStorage_Delete(t *testing.T) {
	storage := NewListStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	_, err := storage.LPush(ctx, "k", "a")
	require.NoError(t, err)
	require.NoError(t, storage.Delete(ctx, "k"))

	values, err := storage.LRange(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, values)
}
