package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/models"
)

// Service is the subset of linker operations the API exposes.
type Service interface {
	ProcessOne(ctx context.Context, notePath string) (bool, error)
	BackfillAll(ctx context.Context, verbose bool) (models.Summary, error)
	LastRun() *models.Summary
}

// Handler holds HTTP handlers for the admin API.
type Handler struct {
	svc Service
}

// NewHandler creates a new API handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Status returns the summary of the most recent backfill run.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{LastRun: h.svc.LastRun()})
}

// Backfill runs a full vault backfill and returns its summary.
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.BackfillAll(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BackfillResponse{Summary: sum})
}

// Process links a single note into its weekly note.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	changed, err := h.svc.ProcessOne(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{Path: req.Path, Changed: changed})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrConfig), errors.Is(err, apperr.ErrFormat):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}
