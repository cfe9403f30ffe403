package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tarotlab/tarot-reader/internal/cache"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// ErrNoCards rejects a submission without at least one drawn card.
var ErrNoCards = errors.New("at least one tarot card is required")

// Service owns the job lifecycle. Submit creates a pending job and returns
// immediately; a background goroutine drives it to completed or failed. Only
// that goroutine ever mutates the job, so the store needs no per-key locking
// beyond its own map guard.
type Service struct {
	store    Store
	provider models.Provider
	cache    cache.Cache
	timeout  time.Duration
}

// NewService creates a new Service. The timeout bounds each provider call.
func NewService(store Store, provider models.Provider, c cache.Cache, timeout time.Duration) *Service {
	return &Service{
		store:    store,
		provider: provider,
		cache:    c,
		timeout:  timeout,
	}
}

// Submit validates the request, inserts a pending job, and dispatches
// processing in a background goroutine. It returns before the provider call
// starts; callers poll Job for the outcome.
func (s *Service) Submit(ctx context.Context, question string, cards []models.Card) (*models.Job, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	if strings.TrimSpace(question) == "" {
		question = DefaultQuestion
	}

	job := &models.Job{
		ID:        uuid.New(),
		Status:    models.JobStatusPending,
		Question:  question,
		Cards:     cards,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	go s.process(job.ID)

	return job, nil
}

// Job returns the current record for the given id.
func (s *Service) Job(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.store.Get(ctx, id)
}

// process drives a single job to a terminal state. It recovers from panics
// and never lets an error escape: nothing awaits this goroutine, so every
// failure path must end in a failed job record instead.
func (s *Service) process(id uuid.UUID) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while processing job", "error", r, "job_id", id)
			s.fail(ctx, id, fmt.Sprintf("panic: %v", r))
		}
	}()

	job, err := s.store.Get(ctx, id)
	if err != nil {
		slog.Error("job vanished before processing", "error", err, "job_id", id)
		return
	}

	job.Status = models.JobStatusProcessing
	if err := s.store.Update(ctx, job); err != nil {
		slog.Error("marking job processing", "error", err, "job_id", id)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	completion, err := s.provider.Complete(callCtx, buildMessages(job.Question, job.Cards))
	if err != nil {
		s.fail(ctx, id, err.Error())
		return
	}

	result := strings.TrimSpace(completion.Content)
	if result == "" {
		s.fail(ctx, id, models.ErrEmptyResponse.Error())
		return
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.Result = result
	job.CompletedAt = &now
	if err := s.store.Update(ctx, job); err != nil {
		slog.Error("storing job result", "error", err, "job_id", id)
		return
	}

	slog.Info("job completed", "job_id", id,
		"provider", s.provider.Name(), "total_tokens", completion.Usage.TotalTokens)

	// Usage accounting is best-effort; the result is already stored.
	if err := s.cache.RecordTokenUsage(ctx, id, completion.Usage); err != nil {
		slog.Warn("recording token usage", "error", err, "job_id", id)
	}
}

// fail marks the job failed with the given message. Terminal writes carry
// exactly one of result/error, never both.
func (s *Service) fail(ctx context.Context, id uuid.UUID, msg string) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		slog.Error("job vanished before failure could be recorded", "error", err, "job_id", id)
		return
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.Error = msg
	job.CompletedAt = &now
	if err := s.store.Update(ctx, job); err != nil {
		slog.Error("marking job failed", "error", err, "job_id", id)
		return
	}

	slog.Error("job failed", "job_id", id, "reason", msg)
}
