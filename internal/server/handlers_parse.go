package server

import (
	"net/http"
	"net/url"

	"github.com/parsehub/parsehub/internal/models"
)

// isAbsoluteURL reports whether raw parses as an absolute URL with a
// scheme and host. sourceUrl must be absolute; relative paths have no
// meaning to a provider client.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

type providerListResponse struct {
	Providers []models.Provider `json:"providers"`
}

// handleListProviders reports every provider registered with the router.
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, providerListResponse{Providers: s.app.Router.AvailableProviders()})
}

// submitJobRequest is the wire shape for POST /parse/jobs.
type submitJobRequest struct {
	OrgID     string          `json:"orgId"`
	CreatorID string          `json:"creatorId"`
	Provider  models.Provider `json:"provider"`
	SourceURL string          `json:"sourceUrl"`
}

// handleSubmitJob creates a parse job and schedules it for background
// execution, returning it in PENDING state.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.OrgID == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "orgId is required", "VALIDATION_ERROR")
		return
	}
	if req.CreatorID == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "creatorId is required", "VALIDATION_ERROR")
		return
	}
	if req.SourceURL == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "sourceUrl is required", "VALIDATION_ERROR")
		return
	}
	if !isAbsoluteURL(req.SourceURL) {
		WriteErrorWithCode(w, http.StatusBadRequest, "sourceUrl must be a syntactically valid absolute URL", "VALIDATION_ERROR")
		return
	}
	if !req.Provider.Valid() {
		WriteErrorWithCode(w, http.StatusBadRequest, "provider must be one of: OPENAI, OPENROUTER, QWEN_LOCAL", "VALIDATION_ERROR")
		return
	}

	job, err := s.app.ParseService.SubmitJob(r.Context(), req.OrgID, req.CreatorID, req.Provider, req.SourceURL)
	if err != nil {
		WriteErrorWithCode(w, http.StatusInternalServerError, "failed to submit job: "+err.Error(), "INTERNAL_ERROR")
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// handleGetJob retrieves a job by id.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.app.ParseService.GetJob(r.Context(), id)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, "job not found", "NOT_FOUND")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// handleListJobsByOrg lists every job belonging to an organization, per
// the org_id query parameter.
func (s *Server) handleListJobsByOrg(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "org_id is required", "VALIDATION_ERROR")
		return
	}
	jobs := s.app.ParseService.ListJobs(r.Context(), orgID)
	if jobs == nil {
		jobs = []*models.ParseJob{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// reviewJobRequest is the wire shape for POST /parse/jobs/{id}/review.
type reviewJobRequest struct {
	Decision models.ReviewDecision `json:"decision"`
}

// handleReviewJob adjudicates a job awaiting human review.
func (s *Server) handleReviewJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req reviewJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !req.Decision.Valid() {
		WriteErrorWithCode(w, http.StatusBadRequest, "decision must be one of: APPROVED, REJECTED", "VALIDATION_ERROR")
		return
	}

	job, ok := s.app.ParseService.ReviewJob(r.Context(), id, req.Decision)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, "job not found", "NOT_FOUND")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
