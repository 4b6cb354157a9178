package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/domain/model"
)

const defaultRunListLimit = 50

// RunsHandler serves the read-only runs API
type RunsHandler struct {
	store interfaces.RunRepository
}

// NewRunsHandler creates a RunsHandler
func NewRunsHandler(store interfaces.RunRepository) *RunsHandler {
	return &RunsHandler{store: store}
}

// List returns recent runs, most recently started first
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, goerr.New("limit must be a positive integer"), http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.store.List(ctx, limit)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to list runs", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"runs": runs}); err != nil {
		ctxlog.From(ctx).Error("Failed to encode runs response", "error", err)
	}
}

// Get returns a single run by id
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	run, err := h.store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			writeError(w, err, http.StatusNotFound)
			return
		}
		ctxlog.From(ctx).Error("Failed to get run", "run_id", runID, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		ctxlog.From(ctx).Error("Failed to encode run response", "error", err)
	}
}
