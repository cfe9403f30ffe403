// Package jobs holds the in-memory job store and the lifecycle service that
// drives interpretation jobs from pending to a terminal state.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

var (
	ErrNotFound    = errors.New("job not found")
	ErrDuplicateID = errors.New("job id already exists")
)

// Store is the job data access interface. All job reads and mutations go
// through here. Updates replace the whole record; there are no partial writes
// a reader could observe mid-flight.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type entry struct {
	job       *models.Job
	expiresAt time.Time
}

// MemoryStore implements Store with a process-local map. Jobs are short-lived,
// single-session artifacts; losing them on restart is accepted. A background
// sweeper removes records past their retention deadline, and Get treats an
// expired-but-unswept record as absent so readers never see a stale job.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]entry
	retention time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewMemoryStore creates a MemoryStore and starts its expiry sweeper.
// Call Close to stop the sweeper.
func NewMemoryStore(retention, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		jobs:      make(map[uuid.UUID]entry),
		retention: retention,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

// Close stops the expiry sweeper and waits for it to exit.
func (s *MemoryStore) Close() {
	close(s.stop)
	<-s.done
}

func (s *MemoryStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrDuplicateID
	}
	s.jobs[job.ID] = entry{
		job:       job.Clone(),
		expiresAt: time.Now().Add(s.retention),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.job.Clone(), nil
}

// Update replaces the stored record and refreshes its retention deadline, so
// a job expires a fixed window after its last mutation.
func (s *MemoryStore) Update(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[job.ID] = entry{
		job:       job.Clone(),
		expiresAt: time.Now().Add(s.retention),
	}
	return nil
}

// Delete removes the record. Removing an absent id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
	return nil
}

// sweep periodically removes expired records. A single sweep over the map
// avoids accumulating one timer per job under load.
func (s *MemoryStore) sweep(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.removeExpired(now)
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.jobs {
		if now.After(e.expiresAt) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("expired jobs removed", "count", removed)
	}
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
