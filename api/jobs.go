package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/tracker"
	"github.com/epigenicai/genagent/types"
)

// SubmitRequest is the body of POST /v1/jobs.
type SubmitRequest struct {
	Gene        string            `json:"gene"`
	Preferences types.Preferences `json:"preferences"`
}

// SubmitResponse returns the id to poll.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// JobHandler serves the job endpoints on top of a tracker.
type JobHandler struct {
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewJobHandler creates the handler.
func NewJobHandler(t *tracker.Tracker, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		tracker: t,
		logger:  logger.With(zap.String("component", "api")),
	}
}

// Register mounts the job and health routes on a mux.
func (h *JobHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/jobs", h.handleJobs)
	mux.HandleFunc("/v1/jobs/", h.handleJob)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/healthz", h.handleHealth)
}

func (h *JobHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, types.NewError(types.ErrInvalidInput, "method not allowed"), h.logger)
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, types.NewError(types.ErrInvalidInput, "invalid request body").WithCause(err), h.logger)
		return
	}
	id, err := h.tracker.Submit(r.Context(), strings.TrimSpace(req.Gene), req.Preferences)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, SubmitResponse{JobID: id})
}

// handleJob routes GET (status) and DELETE (cancel) for /v1/jobs/{id}.
func (h *JobHandler) handleJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, types.NewError(types.ErrNotFound, "unknown job"), h.logger)
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := h.tracker.Status(id)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		WriteSuccess(w, view)
	case http.MethodDelete:
		if err := h.tracker.Cancel(id); err != nil {
			WriteError(w, err, h.logger)
			return
		}
		WriteSuccess(w, map[string]string{"job_id": id, "cancelled": "requested"})
	default:
		WriteError(w, types.NewError(types.ErrInvalidInput, "method not allowed"), h.logger)
	}
}

func (h *JobHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}
