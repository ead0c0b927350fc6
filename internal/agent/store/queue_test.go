package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/baletrack/internal/models"
)

func TestEnqueuePreservesOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Enqueue(ctx, "b-1", models.StatusYard))
	require.NoError(t, st.Enqueue(ctx, "b-2", models.StatusYard))
	require.NoError(t, st.Enqueue(ctx, "b-3", models.StatusProcessed))

	entries, err := st.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "b-1", entries[0].RecordID)
	require.Equal(t, "b-2", entries[1].RecordID)
	require.Equal(t, "b-3", entries[2].RecordID)
}

func TestEnqueueSupersedesInPlace(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Enqueue(ctx, "b-1", models.StatusYard))
	require.NoError(t, st.Enqueue(ctx, "b-2", models.StatusYard))

	// A later intent for b-1 replaces the pending one without
	// duplicating it or disturbing b-2's position.
	require.NoError(t, st.Enqueue(ctx, "b-1", models.StatusProcessed))

	entries, err := st.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "b-1", entries[0].RecordID)
	require.Equal(t, models.StatusProcessed, entries[0].TargetStatus)
	require.Equal(t, "b-2", entries[1].RecordID)
}

func TestClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Enqueue(ctx, "b-1", models.StatusYard))
	require.NoError(t, st.Enqueue(ctx, "b-2", models.StatusYard))

	require.NoError(t, st.Clear(ctx, "b-1"))

	entries, err := st.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b-2", entries[0].RecordID)

	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Clearing an absent entry is not an error.
	require.NoError(t, st.Clear(ctx, "missing"))
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Enqueue(ctx, "b-1", models.StatusYard))
	require.NoError(t, st.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b-1", entries[0].RecordID)
	require.Equal(t, models.StatusYard, entries[0].TargetStatus)
}
