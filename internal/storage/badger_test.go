package storage

import (
	"context"
	"testing"

	"github.com/go-pkgz/lgr"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := Open(lgr.NoOp, Config{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_SaveAndGetRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := RunRecord{
		RunID:  "run-1",
		Status: RunRunning,
		Swaps: []SwapRecord{
			{Index: 0, BlockNumber: 10, MirroredPnL: 500},
		},
	}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, RunRunning, got.Status)
	require.Len(t, got.Swaps, 1)
	require.Equal(t, int64(500), got.Swaps[0].MirroredPnL)
	require.NotZero(t, got.CreatedAt)
}

func TestBadgerStore_GetRun_NotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
}

func TestBadgerStore_ListRuns_MostRecentFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.SaveRun(ctx, RunRecord{RunID: id, Status: RunPending}))
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Every run we saved must be present, newest first. Sequence keys sort
	// by CreatedAt and then by run ID, so even a tie on a coarse clock
	// leaves run-c ahead of run-b ahead of run-a under reverse iteration.
	seen := map[string]bool{}
	for _, r := range runs {
		seen[r.RunID] = true
	}
	require.True(t, seen["run-a"] && seen["run-b"] && seen["run-c"])
	require.Equal(t, []string{"run-c", "run-b", "run-a"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestBadgerStore_SaveRun_UpdatesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, RunRecord{RunID: "run-x", Status: RunRunning}))
	require.NoError(t, store.SaveRun(ctx, RunRecord{RunID: "run-x", Status: RunCompleted}))

	got, err := store.GetRun(ctx, "run-x")
	require.NoError(t, err)
	require.Equal(t, RunCompleted, got.Status)
}
