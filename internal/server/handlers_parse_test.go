package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parsehub/parsehub/internal/app"
	"github.com/parsehub/parsehub/internal/common"
	"github.com/parsehub/parsehub/internal/models"
	"github.com/parsehub/parsehub/internal/providers/router"
	"github.com/parsehub/parsehub/internal/providers/stub"
	"github.com/parsehub/parsehub/internal/services/parsejobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a Server wired entirely with in-memory, stub-backed
// components — no config file or network access required.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	rt := router.New()
	rt.Register(models.ProviderOpenAI, stub.New("openai"))
	rt.Register(models.ProviderQwenLocal, stub.New("qwen"))

	store := parsejobs.NewStore()
	logger := common.NewSilentLogger()
	svc := parsejobs.New(rt, store, logger)

	a := &app.App{
		Config:       common.NewDefaultConfig(),
		Logger:       logger,
		Router:       rt,
		Store:        store,
		ParseService: svc,
	}
	return NewServer(a)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func TestHandleSubmitJob_Valid(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/parse/jobs", jsonBody(t, submitJobRequest{
		OrgID:     "org-1",
		CreatorID: "user-1",
		Provider:  models.ProviderOpenAI,
		SourceURL: "https://example.com/timetable.ics",
	}))
	rec := httptest.NewRecorder()
	srv.handleSubmitJob(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job models.ParseJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.NotEmpty(t, job.ID)
}

func TestHandleSubmitJob_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/parse/jobs", jsonBody(t, submitJobRequest{
		OrgID: "org-1",
	}))
	rec := httptest.NewRecorder()
	srv.handleSubmitJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitJob_InvalidProvider(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/parse/jobs", jsonBody(t, submitJobRequest{
		OrgID:     "org-1",
		CreatorID: "user-1",
		Provider:  "NOT_A_PROVIDER",
		SourceURL: "https://example.com/timetable.ics",
	}))
	rec := httptest.NewRecorder()
	srv.handleSubmitJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetJob_Found(t *testing.T) {
	srv := newTestServer(t)

	submitReq := httptest.NewRequest(http.MethodPost, "/parse/jobs", jsonBody(t, submitJobRequest{
		OrgID: "org-1", CreatorID: "user-1", Provider: models.ProviderOpenAI, SourceURL: "https://x",
	}))
	submitRec := httptest.NewRecorder()
	srv.handleSubmitJob(submitRec, submitReq)
	var created models.ParseJob
	require.NoError(t, json.NewDecoder(submitRec.Body).Decode(&created))

	getReq := httptest.NewRequest(http.MethodGet, "/parse/jobs/"+created.ID, nil)
	getReq.SetPathValue("id", created.ID)
	getRec := httptest.NewRecorder()
	srv.handleGetJob(getRec, getReq)

	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestHandleGetJob_NotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/parse/jobs/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	srv.handleGetJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListJobsByOrg(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/parse/jobs", jsonBody(t, submitJobRequest{
			OrgID: "org-1", CreatorID: "user-1", Provider: models.ProviderOpenAI, SourceURL: "https://x",
		}))
		rec := httptest.NewRecorder()
		srv.handleSubmitJob(rec, req)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/parse/jobs?org_id=org-1", nil)
	listRec := httptest.NewRecorder()
	srv.handleListJobsByOrg(listRec, listReq)

	require.Equal(t, http.StatusOK, listRec.Code)
	var jobs []models.ParseJob
	require.NoError(t, json.NewDecoder(listRec.Body).Decode(&jobs))
	assert.Len(t, jobs, 2)
}

func TestHandleReviewJob_InvalidDecision(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/parse/jobs/some-id/review", jsonBody(t, map[string]string{
		"decision": "MAYBE",
	}))
	req.SetPathValue("id", "some-id")
	rec := httptest.NewRecorder()
	srv.handleReviewJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReviewJob_NotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/parse/jobs/missing/review", jsonBody(t, reviewJobRequest{
		Decision: models.ReviewApproved,
	}))
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	srv.handleReviewJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListProviders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	rec := httptest.NewRecorder()
	srv.handleListProviders(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp providerListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Providers, 2)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}
