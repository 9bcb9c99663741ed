package interfaces

import (
	"context"

	"github.com/parsehub/parsehub/internal/models"
)

// JobStore persists ParseJob state in-process. Every returned *ParseJob is
// an independent copy; mutating it never affects the stored value.
type JobStore interface {
	// Create inserts a new PENDING job and returns it.
	Create(ctx context.Context, job *models.ParseJob) (*models.ParseJob, error)

	// Get retrieves a job by id.
	Get(ctx context.Context, id string) (*models.ParseJob, bool)

	// Update applies mutate to the stored job under the store's lock and
	// returns the resulting copy. mutate operates on the live job, not a copy.
	Update(ctx context.Context, id string, mutate func(*models.ParseJob)) (*models.ParseJob, bool)

	// ListByOrg returns every job belonging to orgID. Order is unspecified.
	ListByOrg(ctx context.Context, orgID string) []*models.ParseJob
}

// ParseService coordinates the lifecycle of parse jobs: submission,
// background execution via the provider gate, and review of jobs awaiting
// human adjudication.
type ParseService interface {
	// SubmitJob creates a job and schedules it for background execution.
	SubmitJob(ctx context.Context, orgID, creatorID string, provider models.Provider, sourceURL string) (*models.ParseJob, error)

	// GetJob retrieves a job by id.
	GetJob(ctx context.Context, id string) (*models.ParseJob, bool)

	// ListJobs returns every job belonging to orgID.
	ListJobs(ctx context.Context, orgID string) []*models.ParseJob

	// ReviewJob adjudicates a NEEDS_REVIEW job. Outside {SUCCEEDED,
	// NEEDS_REVIEW} the call is a no-op returning the job unchanged.
	ReviewJob(ctx context.Context, id string, decision models.ReviewDecision) (*models.ParseJob, bool)
}
