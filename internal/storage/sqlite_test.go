package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopeckbot/kopeck/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSeenRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, "100:1"))
	require.NoError(t, store.MarkSeen(ctx, "100:2"))
	require.NoError(t, store.MarkSeen(ctx, "100:1"), "re-marking is not an error")

	keys, err := store.LoadSeen(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"100:1", "100:2"}, keys)
}

func TestHistoryRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	history := []model.Receipt{
		{Row: 2, MessageKey: "100:1", Summary: "Петров: -40000"},
		{Row: 3, MessageKey: "100:2", Summary: "Аванс: 50000"},
	}
	require.NoError(t, store.SaveHistory(ctx, history))

	got, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, history, got)

	// Saving again replaces, not appends
	require.NoError(t, store.SaveHistory(ctx, history[:1]))
	got, err = store.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Row)
}

func TestEmptyState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys, err := store.LoadSeen(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	receipts, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, receipts)
}
