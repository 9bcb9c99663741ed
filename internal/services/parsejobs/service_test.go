package parsejobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parsehub/parsehub/internal/common"
	"github.com/parsehub/parsehub/internal/models"
	"github.com/parsehub/parsehub/internal/providers/router"
	"github.com/parsehub/parsehub/internal/providers/stub"
)

// fakeGate is an interfaces.ProviderGate test double with scripted results.
type fakeGate struct {
	events []models.ParsedEvent
	err    error
}

func (g *fakeGate) ParseWith(ctx context.Context, provider models.Provider, orgID, sourceURL string) ([]models.ParsedEvent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.events, nil
}

func (g *fakeGate) AvailableProviders() []models.Provider {
	return []models.Provider{models.ProviderOpenAI}
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubmitJob_SucceedsWhenAllEventsConfident(t *testing.T) {
	gate := &fakeGate{events: []models.ParsedEvent{{Title: "Algebra", Confidence: 0.9}}}
	store := NewStore()
	svc := New(gate, store, common.NewSilentLogger())

	job, err := svc.SubmitJob(context.Background(), "org-1", "user-1", models.ProviderOpenAI, "https://x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool {
		got, _ := svc.GetJob(context.Background(), job.ID)
		return got.Status == models.JobStatusSucceeded
	})
}

func TestSubmitJob_NeedsReviewOnLowConfidence(t *testing.T) {
	gate := &fakeGate{events: []models.ParsedEvent{{Title: "Algebra", Confidence: 0.4}}}
	store := NewStore()
	svc := New(gate, store, common.NewSilentLogger())

	job, _ := svc.SubmitJob(context.Background(), "org-1", "user-1", models.ProviderOpenAI, "https://x")

	waitFor(t, func() bool {
		got, _ := svc.GetJob(context.Background(), job.ID)
		return got.Status == models.JobStatusNeedsReview
	})
}

func TestSubmitJob_FailsWhenRouterErrors(t *testing.T) {
	gate := &fakeGate{err: errors.New("provider circuit open")}
	store := NewStore()
	svc := New(gate, store, common.NewSilentLogger())

	job, _ := svc.SubmitJob(context.Background(), "org-1", "user-1", models.ProviderOpenAI, "https://x")

	waitFor(t, func() bool {
		got, _ := svc.GetJob(context.Background(), job.ID)
		return got.Status == models.JobStatusFailed
	})

	got, _ := svc.GetJob(context.Background(), job.ID)
	if got.Error == "" {
		t.Fatal("expected error message to be recorded")
	}
}

// panickyGate simulates a programmer error inside the dispatch path.
type panickyGate struct{}

func (panickyGate) ParseWith(ctx context.Context, provider models.Provider, orgID, sourceURL string) ([]models.ParsedEvent, error) {
	panic("gate exploded")
}

func (panickyGate) AvailableProviders() []models.Provider { return nil }

func TestSubmitJob_PanicMarksJobFailed(t *testing.T) {
	store := NewStore()
	svc := New(panickyGate{}, store, common.NewSilentLogger())

	job, _ := svc.SubmitJob(context.Background(), "org-1", "user-1", models.ProviderOpenAI, "https://x")

	waitFor(t, func() bool {
		got, _ := svc.GetJob(context.Background(), job.ID)
		return got.Status == models.JobStatusFailed
	})

	got, _ := svc.GetJob(context.Background(), job.ID)
	if !strings.Contains(got.Error, "internal error") {
		t.Fatalf("expected panic to be recorded as an internal error, got %q", got.Error)
	}
}

func TestSubmitJob_StubEndToEndWithReview(t *testing.T) {
	rt := router.New()
	rt.Register(models.ProviderOpenAI, stub.New("openai"))
	store := NewStore()
	svc := New(rt, store, common.NewSilentLogger())

	job, err := svc.SubmitJob(context.Background(), "org-1", "user-1", models.ProviderOpenAI, "https://example.com/sample.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool {
		got, _ := svc.GetJob(context.Background(), job.ID)
		return got.Status == models.JobStatusSucceeded || got.Status == models.JobStatusNeedsReview
	})

	done, _ := svc.GetJob(context.Background(), job.ID)
	if len(done.Events) == 0 {
		t.Fatal("expected the completed job to carry parsed events")
	}

	reviewed, ok := svc.ReviewJob(context.Background(), job.ID, models.ReviewApproved)
	if !ok {
		t.Fatal("expected review to find the job")
	}
	if reviewed.Status != models.JobStatusSucceeded {
		t.Fatalf("expected SUCCEEDED after approval, got %s", reviewed.Status)
	}
	if reviewed.Metadata["review"] != "approved" {
		t.Fatalf("expected review metadata to be recorded, got %v", reviewed.Metadata)
	}
}

func TestReviewJob_ApprovedFromNeedsReview(t *testing.T) {
	store := NewStore()
	svc := New(&fakeGate{}, store, common.NewSilentLogger())

	created, _ := store.Create(context.Background(), &models.ParseJob{OrgID: "org-1"})
	store.Update(context.Background(), created.ID, func(j *models.ParseJob) {
		j.Status = models.JobStatusNeedsReview
	})

	reviewed, ok := svc.ReviewJob(context.Background(), created.ID, models.ReviewApproved)
	if !ok {
		t.Fatal("expected review to find the job")
	}
	if reviewed.Status != models.JobStatusSucceeded {
		t.Fatalf("expected SUCCEEDED after approval, got %s", reviewed.Status)
	}
	if reviewed.Metadata["review"] != "approved" {
		t.Fatalf("expected review metadata to be recorded, got %v", reviewed.Metadata)
	}
}

func TestReviewJob_RejectedFromSucceeded(t *testing.T) {
	store := NewStore()
	svc := New(&fakeGate{}, store, common.NewSilentLogger())

	created, _ := store.Create(context.Background(), &models.ParseJob{OrgID: "org-1"})
	store.Update(context.Background(), created.ID, func(j *models.ParseJob) {
		j.Status = models.JobStatusSucceeded
	})

	reviewed, ok := svc.ReviewJob(context.Background(), created.ID, models.ReviewRejected)
	if !ok {
		t.Fatal("expected review to find the job")
	}
	if reviewed.Status != models.JobStatusFailed {
		t.Fatalf("expected FAILED after rejection, got %s", reviewed.Status)
	}
}

func TestReviewJob_NoOpOnTerminalFailed(t *testing.T) {
	store := NewStore()
	svc := New(&fakeGate{}, store, common.NewSilentLogger())

	created, _ := store.Create(context.Background(), &models.ParseJob{OrgID: "org-1"})
	store.Update(context.Background(), created.ID, func(j *models.ParseJob) {
		j.MarkFailed("boom")
	})

	reviewed, ok := svc.ReviewJob(context.Background(), created.ID, models.ReviewApproved)
	if !ok {
		t.Fatal("expected review call to find the job even though it is a no-op")
	}
	if reviewed.Status != models.JobStatusFailed {
		t.Fatalf("expected status to remain FAILED, got %s", reviewed.Status)
	}
	if _, mutated := reviewed.Metadata["review"]; mutated {
		t.Fatal("expected no review metadata to be written for a terminal FAILED job")
	}
}

func TestReviewJob_UnknownID(t *testing.T) {
	store := NewStore()
	svc := New(&fakeGate{}, store, common.NewSilentLogger())

	_, ok := svc.ReviewJob(context.Background(), "missing", models.ReviewApproved)
	if ok {
		t.Fatal("expected review of an unknown id to report not found")
	}
}
