package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/internal/storage"
)

// RunsHandler exposes recorded revision runs.
type RunsHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewRunsHandler(store storage.Store, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{store: store, logger: logger}
}

// List serves GET /runs/{owner}/{repo}?pr=N&limit=M as JSON, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")

	pr, err := intQuery(r, "pr")
	if err != nil {
		http.Error(w, "Invalid pr parameter", http.StatusBadRequest)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}

	runs, err := h.store.ListRuns(r.Context(), repo, pr, limit)
	if err != nil {
		h.logger.Error("failed to list revision runs", "repo", repo, "error", err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.RevisionRun{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		h.logger.Error("failed to encode revision runs", "error", err)
	}
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
