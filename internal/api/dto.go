package api

import "github.com/starford/jera/internal/models"

// ProcessRequest is the request body for linking a single note.
type ProcessRequest struct {
	Path string `json:"path" example:"daily/2025-05-12.md"`
}

// ProcessResponse reports the outcome of a single-note run.
type ProcessResponse struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
}

// BackfillResponse wraps a backfill summary.
type BackfillResponse struct {
	Summary models.Summary `json:"summary"`
}

// StatusResponse reports the most recent backfill, if any.
type StatusResponse struct {
	LastRun *models.Summary `json:"last_run"`
}
