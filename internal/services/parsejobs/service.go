package parsejobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/parsehub/parsehub/internal/common"
	"github.com/parsehub/parsehub/internal/interfaces"
	"github.com/parsehub/parsehub/internal/models"
)

// Service coordinates provider routing and job bookkeeping: submitting a
// job schedules its execution in the background and returns immediately
// with the PENDING job.
type Service struct {
	router interfaces.ProviderGate
	store  interfaces.JobStore
	logger *common.Logger

	wg sync.WaitGroup
}

// New creates a Service backed by router and store.
func New(router interfaces.ProviderGate, store interfaces.JobStore, logger *common.Logger) *Service {
	return &Service{router: router, store: store, logger: logger}
}

// safeGo launches fn in its own goroutine, recovering and logging any
// panic rather than letting it crash the process.
func (s *Service) safeGo(name string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in parse job goroutine")
			}
		}()
		fn()
	}()
}

// Wait blocks until every in-flight background job has finished. Intended
// for use during graceful shutdown and in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// SubmitJob creates a PENDING job and schedules its execution in the
// background, returning the job immediately.
func (s *Service) SubmitJob(ctx context.Context, orgID, creatorID string, provider models.Provider, sourceURL string) (*models.ParseJob, error) {
	job := &models.ParseJob{
		OrgID:     orgID,
		CreatorID: creatorID,
		Provider:  provider,
		SourceURL: sourceURL,
	}
	created, err := s.store.Create(ctx, job)
	if err != nil {
		return nil, err
	}

	s.safeGo("execute-job:"+created.ID, func() {
		s.executeJob(context.Background(), created.ID)
	})

	return created, nil
}

// executeJob runs the full lifecycle for a single job: RUNNING, then
// dispatch through the provider gate, then SUCCEEDED/NEEDS_REVIEW/FAILED.
// A panic anywhere in the lifecycle fails the job rather than leaving it
// stuck in RUNNING.
func (s *Service) executeJob(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic while executing parse job")
			s.store.Update(ctx, jobID, func(j *models.ParseJob) {
				j.MarkFailed(fmt.Sprintf("internal error: %v", r))
			})
		}
	}()

	job, ok := s.store.Get(ctx, jobID)
	if !ok {
		return
	}

	if _, ok := s.store.Update(ctx, jobID, func(j *models.ParseJob) { j.MarkRunning() }); !ok {
		return
	}

	events, err := s.router.ParseWith(ctx, job.Provider, job.OrgID, job.SourceURL)
	if err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Parse job failed")
		s.store.Update(ctx, jobID, func(j *models.ParseJob) { j.MarkFailed(err.Error()) })
		return
	}

	s.store.Update(ctx, jobID, func(j *models.ParseJob) { j.MarkSucceeded(events) })
}

// GetJob retrieves a job by id.
func (s *Service) GetJob(ctx context.Context, id string) (*models.ParseJob, bool) {
	return s.store.Get(ctx, id)
}

// ListJobs returns every job belonging to orgID.
func (s *Service) ListJobs(ctx context.Context, orgID string) []*models.ParseJob {
	return s.store.ListByOrg(ctx, orgID)
}

// ReviewJob adjudicates a job awaiting human review. Outside
// {SUCCEEDED, NEEDS_REVIEW} it is a no-op that returns the job unchanged.
func (s *Service) ReviewJob(ctx context.Context, id string, decision models.ReviewDecision) (*models.ParseJob, bool) {
	return s.store.Update(ctx, id, func(j *models.ParseJob) {
		if j.Status != models.JobStatusSucceeded && j.Status != models.JobStatusNeedsReview {
			return
		}
		if j.Metadata == nil {
			j.Metadata = make(models.Attributes)
		}
		if decision == models.ReviewApproved {
			j.Metadata["review"] = "approved"
			j.Status = models.JobStatusSucceeded
		} else {
			j.Metadata["review"] = "rejected"
			j.Status = models.JobStatusFailed
		}
	})
}

var _ interfaces.ParseService = (*Service)(nil)
