package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitlink/internal/constants"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/facts"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/reconcile"
	"github.com/julianstephens/habitlink/internal/snapshot"
	"github.com/julianstephens/habitlink/internal/source"
	"github.com/julianstephens/habitlink/internal/storage/sqlite"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func setupHandler(t *testing.T, items ...models.ForeignItem) *Handler {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.AddHabit(models.Habit{ID: "h1", Name: "Read"}))
	require.NoError(t, store.SaveLink(models.RequiredLink{ID: "l1", HabitID: "h1", IdentityKeys: []string{"Z"}, IsRequired: true}))

	dir := filepath.Join(t.TempDir(), "snapshots")
	engine := reconcile.New(store, source.NewMemory(items...), reconcile.Options{
		Loc:      time.UTC,
		Now:      func() time.Time { return now },
		Snapshot: snapshot.NewWriter(store, dir, time.UTC, nil).WithClock(func() time.Time { return now }),
	})
	return &Handler{Engine: engine, SnapshotDir: dir, MaxBackfillDays: 30}
}

func do(t *testing.T, h *Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, &Handler{}, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestReconcileThenReadSnapshot(t *testing.T) {
	at := now.Add(-2 * time.Hour)
	h := setupHandler(t, models.ForeignItem{LocalID: "L1", ExternalID: "Z", IsCompleted: true, CompletedAt: &at})

	rec := do(t, h, http.MethodPost, "/api/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res reconcile.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, constants.RunStatusOK, res.Status)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].IsComplete)

	rec = do(t, h, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var index models.HabitIndex
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&index))
	require.Len(t, index.Habits, 1)
	assert.Equal(t, "Read", index.Habits[0].Name)

	rec = do(t, h, http.MethodGet, "/api/snapshots/h1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.TodaySnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.True(t, snap.IsComplete)
	assert.Len(t, snap.Days, constants.DefaultSnapshotWindowDays)
}

func TestSnapshotNotFound(t *testing.T) {
	h := setupHandler(t)
	rec := do(t, h, http.MethodGet, "/api/snapshots/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackfill(t *testing.T) {
	h := setupHandler(t)

	rec := do(t, h, http.MethodPost, "/api/backfill?days=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res reconcile.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 5, res.Days)
	assert.Equal(t, "2025-03-06", res.Start)

	for _, bad := range []string{"0", "31", "abc"} {
		rec := do(t, h, http.MethodPost, "/api/backfill?days="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "days=%s", bad)
	}
}

func TestSourceChangedRunsToday(t *testing.T) {
	h := setupHandler(t)
	rec := do(t, h, http.MethodPost, "/api/source-changed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res reconcile.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "2025-03-10", res.Start)
	assert.Equal(t, res.Start, res.End)
}

type busyRunner struct{}

func (busyRunner) RunToday(context.Context) (reconcile.Result, error) {
	return reconcile.Result{}, apperrors.ErrRunInProgress
}

func (busyRunner) RunWindow(context.Context, facts.Window) (reconcile.Result, error) {
	return reconcile.Result{}, apperrors.ErrRunInProgress
}

func (busyRunner) LastNDays(n int) facts.Window { return facts.LastNDays(now, n, time.UTC) }

func TestRunInProgressConflict(t *testing.T) {
	h := &Handler{Engine: busyRunner{}}
	for _, target := range []string{"/api/reconcile", "/api/backfill?days=2", "/api/source-changed"} {
		rec := do(t, h, http.MethodPost, target, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, target)
	}
}

func TestBearerToken(t *testing.T) {
	h := setupHandler(t)
	h.Token = "s3cret"

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/reconcile", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, h, http.MethodPost, "/api/reconcile", map[string]string{"Authorization": "Bearer nope"}).Code)
	assert.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/reconcile", map[string]string{"Authorization": "Bearer s3cret"}).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)
}
