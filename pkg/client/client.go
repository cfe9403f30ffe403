// Package client is the Go client for the tarot reader API. It turns the
// submit-then-poll protocol into a single Interpret call so a consumer with a
// short per-request budget can wait out a slow model behind bounded polling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// Polling defaults. Worst case is ~30 round trips with exponentially
// decreasing frequency.
const (
	DefaultMaxAttempts  = 30
	DefaultInitialDelay = 2 * time.Second
	DefaultMaxDelay     = 8 * time.Second

	backoffMultiplier = 1.5
)

var (
	// ErrJobNotFound is returned when the server no longer knows the job id,
	// e.g. after the retention window has passed.
	ErrJobNotFound = errors.New("job not found")
	// ErrPollTimeout is returned when the attempt budget runs out before the
	// job settles. The job keeps running server-side; submit again if needed.
	ErrPollTimeout = errors.New("interpretation timed out, try again later")
)

// SubmissionError is a synchronous rejection at submit time. It is never
// retried.
type SubmissionError struct {
	Code    string
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected: %s: %s", e.Code, e.Message)
}

// JobFailedError carries the error message stored on a failed job.
type JobFailedError struct {
	Message string
}

func (e *JobFailedError) Error() string { return e.Message }

// Client calls the tarot reader API.
type Client struct {
	baseURL string
	http    *http.Client

	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBackoff overrides the polling schedule. Mostly useful in tests.
func WithBackoff(maxAttempts int, initialDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.initialDelay = initialDelay
		c.maxDelay = maxDelay
	}
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
		maxDelay:     DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit creates an interpretation job and returns its id.
func (c *Client) Submit(ctx context.Context, question string, cards []models.Card) (uuid.UUID, error) {
	body, err := json.Marshal(struct {
		Question string        `json:"question"`
		Cards    []models.Card `json:"cards"`
	}{Question: question, Cards: cards})
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/interpret", bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("submitting job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return uuid.Nil, submissionError(resp)
	}

	var env struct {
		Data struct {
			JobID string `json:"jobId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return uuid.Nil, fmt.Errorf("decoding response: %w", err)
	}

	id, err := uuid.Parse(env.Data.JobID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing job id %q: %w", env.Data.JobID, err)
	}
	return id, nil
}

// Job fetches the current record for a job id.
func (c *Client) Job(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/interpret/"+id.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("querying job status: unexpected status %d", resp.StatusCode)
	}

	var env struct {
		Data models.Job `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding job record: %w", err)
	}
	return &env.Data, nil
}

// Interpret submits the question and cards, then polls with adaptive backoff
// until the job settles, the attempt budget runs out, or a status query fails.
// A single transport failure aborts the polling session immediately.
func (c *Client) Interpret(ctx context.Context, question string, cards []models.Card) (string, error) {
	id, err := c.Submit(ctx, question, cards)
	if err != nil {
		return "", err
	}

	delay := c.initialDelay
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		job, err := c.Job(ctx, id)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case models.JobStatusCompleted:
			return job.Result, nil
		case models.JobStatusFailed:
			return "", &JobFailedError{Message: job.Error}
		}

		if attempt == c.maxAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
		delay = nextDelay(delay, c.maxDelay)
	}

	return "", ErrPollTimeout
}

// nextDelay advances the poll delay by the backoff multiplier, capped at max.
func nextDelay(d, max time.Duration) time.Duration {
	d = time.Duration(float64(d) * backoffMultiplier)
	if d > max {
		d = max
	}
	return d
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// submissionError decodes the server's error envelope into a SubmissionError.
func submissionError(resp *http.Response) error {
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Error.Code == "" {
		return &SubmissionError{
			Code:    "UNEXPECTED_STATUS",
			Message: fmt.Sprintf("status %d", resp.StatusCode),
		}
	}
	return &SubmissionError{Code: env.Error.Code, Message: env.Error.Message}
}
