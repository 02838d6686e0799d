package runlog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/runlog"
)

func appendN(t *testing.T, store runlog.Store, runID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := runlog.FromHookEvent(runID, "agent-1", hooks.NewInferenceEvent(hooks.InferenceStarted, runID, "1.0", "IWI", i+1))
		require.NoError(t, store.Append(context.Background(), e))
	}
}

func TestMemoryStore_ListReturnsOldestFirst(t *testing.T) {
	store := runlog.NewMemoryStore(100)
	appendN(t, store, "r1", 5)

	page, err := store.List(context.Background(), "r1", "", 100)
	require.NoError(t, err)
	require.Len(t, page.Events, 5)
	for i, e := range page.Events {
		ie := e.Event.(*hooks.InferenceEvent)
		assert.Equal(t, i+1, ie.StepIndex)
	}
	assert.Empty(t, page.NextCursor)
}

func TestMemoryStore_PaginatesWithCursor(t *testing.T) {
	store := runlog.NewMemoryStore(100)
	appendN(t, store, "r1", 5)

	first, err := store.List(context.Background(), "r1", "", 2)
	require.NoError(t, err)
	require.Len(t, first.Events, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := store.List(context.Background(), "r1", first.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Events, 2)
	assert.NotEqual(t, first.Events[0].ID, second.Events[0].ID)

	third, err := store.List(context.Background(), "r1", second.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, third.Events, 1)
	assert.Empty(t, third.NextCursor)
}

func TestMemoryStore_RingBufferDropsOldestBeyondCapacity(t *testing.T) {
	store := runlog.NewMemoryStore(3)
	appendN(t, store, "r1", 5)

	page, err := store.List(context.Background(), "r1", "", 100)
	require.NoError(t, err)
	require.Len(t, page.Events, 3)
	firstKept := page.Events[0].Event.(*hooks.InferenceEvent)
	assert.Equal(t, 3, firstKept.StepIndex, "oldest two events must have been evicted")
}

func TestMemoryStore_RunsAreIsolated(t *testing.T) {
	store := runlog.NewMemoryStore(100)
	appendN(t, store, "r1", 2)
	appendN(t, store, "r2", 3)

	page1, err := store.List(context.Background(), "r1", "", 100)
	require.NoError(t, err)
	assert.Len(t, page1.Events, 2)

	page2, err := store.List(context.Background(), "r2", "", 100)
	require.NoError(t, err)
	assert.Len(t, page2.Events, 3)
}

func TestMemoryStore_ListUnknownRunReturnsEmptyPage(t *testing.T) {
	store := runlog.NewMemoryStore(100)
	page, err := store.List(context.Background(), "missing", "", 100)
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.Empty(t, page.NextCursor)
}

func TestMemoryStore_NonPositiveCapacityDefaults(t *testing.T) {
	store := runlog.NewMemoryStore(0)
	appendN(t, store, "r1", 1)
	page, err := store.List(context.Background(), "r1", "", 1)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
}
