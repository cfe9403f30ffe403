// Package models contains shared data models used across the tarot reader codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Card is a single drawn tarot card. Description is the orientation-appropriate
// meaning, already resolved by the caller that drew the card.
type Card struct {
	Name        string `json:"name"`
	Reversed    bool   `json:"reversed"`
	Description string `json:"description"`
}

// Job tracks an async interpretation request. The API returns a jobId on
// POST /api/v1/interpret; the client polls GET /api/v1/interpret/{jobID}
// until status is completed or failed.
type Job struct {
	ID          uuid.UUID  `json:"jobId"`
	Status      string     `json:"status"`
	Question    string     `json:"question"`
	Cards       []Card     `json:"cards"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created"`
	CompletedAt *time.Time `json:"completed,omitempty"`
}

// Terminal reports whether the job has settled. Terminal jobs never transition again.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a deep copy of the job. The store hands out and keeps only
// clones, so a reader can never observe a half-applied mutation.
func (j *Job) Clone() *Job {
	c := *j
	if j.Cards != nil {
		c.Cards = make([]Card, len(j.Cards))
		copy(c.Cards, j.Cards)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
