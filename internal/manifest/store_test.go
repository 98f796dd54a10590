package manifest_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"astropipe/internal/manifest"
)

func openStore(t *testing.T) *manifest.Store {
	t.Helper()
	store, err := manifest.OpenPath(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "/data/m31")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	stageID, err := store.StartStage(ctx, run.ID, "denoise", "denoise/cosmic mode=luminance strength=0.5")
	require.NoError(t, err)
	require.NoError(t, store.FinishStage(ctx, stageID, manifest.StatusDone, ""))

	require.NoError(t, store.RecordSkip(ctx, run.ID, "background-extract", "background-extract smooth=0.5", "process/bkg_pp_light_.seq"))
	require.NoError(t, store.FinishRun(ctx, run.ID, "1 done, 1 skipped"))

	records, err := store.History(ctx, "/data/m31", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, manifest.StatusDone, records[0].Status)
	require.Equal(t, "denoise", records[0].Stage)
	require.Equal(t, manifest.StatusSkipped, records[1].Status)
	require.Equal(t, "process/bkg_pp_light_.seq", records[1].Detail)
	require.NotNil(t, records[1].FinishedAt)
}

func TestHistoryScopedToWorkdir(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	runA, err := store.BeginRun(ctx, "/data/a")
	require.NoError(t, err)
	_, err = store.StartStage(ctx, runA.ID, "stretch", "stretch")
	require.NoError(t, err)

	runB, err := store.BeginRun(ctx, "/data/b")
	require.NoError(t, err)
	_, err = store.StartStage(ctx, runB.ID, "denoise", "denoise")
	require.NoError(t, err)

	records, err := store.History(ctx, "/data/a", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "stretch", records[0].Stage)
}

func TestStageFailureRecordsDetail(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "/data/m31")
	require.NoError(t, err)
	stageID, err := store.StartStage(ctx, run.ID, "sharpen", "sharpen/cosmic mode=Both")
	require.NoError(t, err)
	require.NoError(t, store.FinishStage(ctx, stageID, manifest.StatusFailed, "external tool error: exit status 1"))

	records, err := store.History(ctx, "/data/m31", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, manifest.StatusFailed, records[0].Status)
	require.Contains(t, records[0].Detail, "exit status 1")
}
