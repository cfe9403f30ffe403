// Package handler contains the HTTP handlers for the interpretation API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tarotlab/tarot-reader/internal/api/response"
	"github.com/tarotlab/tarot-reader/internal/jobs"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// JobService defines what the interpret handlers need from the jobs layer.
type JobService interface {
	Submit(ctx context.Context, question string, cards []models.Card) (*models.Job, error)
	Job(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type submitRequest struct {
	Question string        `json:"question"`
	Cards    []models.Card `json:"cards"`
}

type submitResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// NewInterpretHandler returns an http.HandlerFunc for POST /api/v1/interpret.
// It creates a pending job and responds 202 with the id to poll.
func NewInterpretHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Submit(r.Context(), req.Question, req.Cards)
		if err != nil {
			if errors.Is(err, jobs.ErrNoCards) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "需要至少一张塔罗牌", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Accepted(w, submitResponse{
			JobID:   job.ID.String(),
			Message: "Job created successfully. Poll for results.",
		})
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/interpret/{jobID}.
// It returns the full job record, including result or error once terminal.
func NewJobStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid job id", nil)
			return
		}

		job, err := svc.Job(r.Context(), id)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, job)
	}
}
