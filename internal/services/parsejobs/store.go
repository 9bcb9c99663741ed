// Package parsejobs implements the in-memory parse job store and the
// service that coordinates job submission, background execution, and
// review.
package parsejobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parsehub/parsehub/internal/interfaces"
	"github.com/parsehub/parsehub/internal/models"
)

// Store is a mutex-guarded, in-memory implementation of interfaces.JobStore.
// There is no durable backing: a process restart loses every job. Every
// method returns an independent clone so callers can never observe or
// mutate the store's internal state directly.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*models.ParseJob
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*models.ParseJob)}
}

// Create assigns a new id and PENDING status to job, stores it, and returns
// a copy.
func (s *Store) Create(ctx context.Context, job *models.ParseJob) (*models.ParseJob, error) {
	job.ID = uuid.New().String()
	job.Status = models.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.jobs[job.ID] = job.Clone()
	s.mu.Unlock()

	return job.Clone(), nil
}

// Get retrieves a copy of the job with the given id.
func (s *Store) Get(ctx context.Context, id string) (*models.ParseJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Update applies mutate to the live stored job under the lock and returns a
// copy of the result.
func (s *Store) Update(ctx context.Context, id string, mutate func(*models.ParseJob)) (*models.ParseJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	mutate(job)
	return job.Clone(), true
}

// ListByOrg returns copies of every job belonging to orgID.
func (s *Store) ListByOrg(ctx context.Context, orgID string) []*models.ParseJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ParseJob
	for _, job := range s.jobs {
		if job.OrgID == orgID {
			out = append(out, job.Clone())
		}
	}
	return out
}

var _ interfaces.JobStore = (*Store)(nil)
