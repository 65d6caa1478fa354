package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sneakwatch/go-release-pipeline/internal/jobs"
)

// JobsHandler is the scheduler-facing surface of the job queue.
type JobsHandler struct {
	Queue jobs.Queue
}

type EnqueueJobReq struct {
	Target string         `json:"target"`
	Params map[string]any `json:"params"`
}

func (h *JobsHandler) Register(r *chi.Mux) {
	r.Post("/jobs", h.enqueueJob)
	r.Get("/jobs/{id}", h.getJob)
	r.Get("/jobs", h.queueStats)
}

func (h *JobsHandler) enqueueJob(w http.ResponseWriter, r *http.Request) {
	var req EnqueueJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing target"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job, err := h.Queue.Enqueue(ctx, req.Target, req.Params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *JobsHandler) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	job, err := h.Queue.Get(ctx, id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobsHandler) queueStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Queue.PendingCount(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending": n})
}
