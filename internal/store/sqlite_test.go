package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grangerlab/landcover/internal/report"
	"github.com/grangerlab/landcover/internal/sample"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "/data/scene-42")
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "/data/scene-42", run.SceneDir)
	assert.Equal(t, RunStatusQueued, run.Status)

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSQLite_RunStatusLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "/data/scene")
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, RunStatusRunning))
	require.NoError(t, st.CompleteRun(ctx, run.ID, RunStatusComplete, `{"samples":12}`))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
	assert.Equal(t, `{"samples":12}`, runs[0].Result)
}

func TestSQLite_UpdateUnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.UpdateRunStatus(ctx, "no-such-run", RunStatusFailed)
	require.Error(t, err)

	err = st.CompleteRun(ctx, "no-such-run", RunStatusComplete, "{}")
	require.Error(t, err)
}

func TestSQLite_SaveSamples(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "/data/scene")
	require.NoError(t, err)

	records := []sample.Record{
		{SiteID: 0, Label: "water", Row: 1, Col: 1, Values: []float64{2.0, 1.0}},
		{SiteID: 1, Label: "vegetation", Row: 1, Col: 2, Values: []float64{62.0, 41.0}},
	}
	require.NoError(t, st.SaveSamples(ctx, run.ID, records))

	var n int
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE run_id = ?`, run.ID).Scan(&n))
	assert.Equal(t, 2, n)

	var label, vals string
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT label, values_ FROM samples WHERE run_id = ? AND site_id = 0`, run.ID).Scan(&label, &vals))
	assert.Equal(t, "water", label)
	assert.Equal(t, "[2,1]", vals)
}

func TestSQLite_SaveClassAreas(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "/data/scene")
	require.NoError(t, err)

	areas := []report.ClassArea{
		{Label: "water", Cells: 3, Area: 2700, AreaHa: 0.27, Percent: 75},
		{Label: "vegetation", Cells: 1, Area: 900, AreaHa: 0.09, Percent: 25},
	}
	require.NoError(t, st.SaveClassAreas(ctx, run.ID, areas))

	var n int
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_areas WHERE run_id = ?`, run.ID).Scan(&n))
	assert.Equal(t, 2, n)

	var pct float64
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT percent FROM class_areas WHERE run_id = ? AND label = 'water'`, run.ID).Scan(&pct))
	assert.Equal(t, 75.0, pct)
}

func TestSQLite_ListRunsLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.CreateRun(ctx, "/data/scene")
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	// Limit <= 0 falls back to the default.
	runs, err = st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}
