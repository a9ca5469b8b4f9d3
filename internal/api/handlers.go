package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/habitlink/internal/constants"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/facts"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/reconcile"
	"github.com/julianstephens/habitlink/internal/snapshot"
)

// Runner is the reconciliation engine as the API drives it.
type Runner interface {
	RunToday(ctx context.Context) (reconcile.Result, error)
	RunWindow(ctx context.Context, w facts.Window) (reconcile.Result, error)
	LastNDays(n int) facts.Window
}

// Handler holds the dependencies of every route.
type Handler struct {
	Engine      Runner
	SnapshotDir string
	// MaxBackfillDays bounds ?days= on /api/backfill.
	MaxBackfillDays int
	// Token, when set, is required as a bearer token on /api routes.
	Token          string
	AllowedOrigins []string
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: constants.Version})
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	index, err := snapshot.ReadIndex(h.SnapshotDir)
	if err != nil {
		writeFailure(w, "failed to read snapshot index", err)
		return
	}
	writeJSON(w, http.StatusOK, index)
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := snapshot.ReadSnapshot(h.SnapshotDir, chi.URLParam(r, "habitID"))
	if err != nil {
		writeFailure(w, "failed to read snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.RunToday(r.Context())
	h.writeRun(w, res, err)
}

// SourceChanged is called by whatever watches the reminders provider.
func (h *Handler) SourceChanged(w http.ResponseWriter, r *http.Request) {
	logger.Debug("Reminders source reported a change")
	res, err := h.Engine.RunToday(r.Context())
	h.writeRun(w, res, err)
}

func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBackfillDays
	if limit <= 0 {
		limit = constants.DefaultBackfillMaxDays
	}

	days := constants.DefaultSnapshotWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > limit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", limit), err)
			return
		}
		days = n
	}
	if days > limit {
		days = limit
	}

	res, err := h.Engine.RunWindow(r.Context(), h.Engine.LastNDays(days))
	h.writeRun(w, res, err)
}

func (h *Handler) writeRun(w http.ResponseWriter, res reconcile.Result, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, apperrors.ErrRunInProgress):
		writeError(w, http.StatusConflict, "a reconciliation run is already in progress", nil)
	case res.Status == constants.RunStatusCanceled:
		writeJSON(w, http.StatusServiceUnavailable, res)
	default:
		logger.Error("Reconciliation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reconciliation failed", err)
	}
}

func writeFailure(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found", err)
		return
	}
	logger.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
