package ai_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/mytube/internal/enrich"
)

type stubCatalog struct {
	targets []enrich.Target
}

func (s *stubCatalog) ListVideosNeedingEnrichment(context.Context) ([]enrich.Target, error) {
	return s.targets, nil
}

type stubPersist struct{}

func (stubPersist) UpdateMetadata(context.Context, uuid.UUID, string, string) error { return nil }

type stubAI struct {
	block chan struct{}
}

func (s *stubAI) SuggestMetadata(context.Context, enrich.Target) (enrich.Suggestion, error) {
	if s.block != nil {
		<-s.block
	}
	return enrich.Suggestion{Title: "T", Description: "D"}, nil
}

func newRegistry(targets int, block chan struct{}) *enrich.Registry {
	list := make([]enrich.Target, targets)
	for i := range list {
		list[i] = enrich.Target{ID: uuid.New(), Filename: "clip.mp4"}
	}
	return enrich.NewRegistry(&stubCatalog{targets: list}, stubPersist{}, &stubAI{block: block})
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, path string, paramName, paramValue string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	err := h(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestBulkStartReturnsJobID(t *testing.T) {
	registry := newRegistry(1, nil)

	rec := doRequest(t, HandleBulkStart(registry), http.MethodPost, "/admin/ai/bulk/start", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, err := uuid.Parse(body["job_id"])
	require.NoError(t, err)
}

func TestBulkStartConflictWhileRunning(t *testing.T) {
	block := make(chan struct{})
	registry := newRegistry(2, block)

	rec := doRequest(t, HandleBulkStart(registry), http.MethodPost, "/admin/ai/bulk/start", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, HandleBulkStart(registry), http.MethodPost, "/admin/ai/bulk/start", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(block)
}

func TestBulkStatus(t *testing.T) {
	registry := newRegistry(1, nil)

	rec := doRequest(t, HandleBulkStart(registry), http.MethodPost, "/admin/ai/bulk/start", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	jobID := started["job_id"]

	require.Eventually(t, func() bool {
		rec := doRequest(t, HandleBulkStatus(registry), http.MethodGet, "/admin/ai/bulk/"+jobID+"/status", "jobId", jobID)
		if rec.Code != http.StatusOK {
			return false
		}
		var snap enrich.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status == enrich.StatusCompleted && snap.Cursor == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBulkStatusUnknownJob(t *testing.T) {
	registry := newRegistry(0, nil)

	other := uuid.New().String()
	rec := doRequest(t, HandleBulkStatus(registry), http.MethodGet, "/admin/ai/bulk/"+other+"/status", "jobId", other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, HandleBulkStatus(registry), http.MethodGet, "/admin/ai/bulk/nope/status", "jobId", "nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkCancel(t *testing.T) {
	block := make(chan struct{})
	registry := newRegistry(3, block)

	rec := doRequest(t, HandleBulkStart(registry), http.MethodPost, "/admin/ai/bulk/start", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	jobID := started["job_id"]

	rec = doRequest(t, HandleBulkCancel(registry), http.MethodPost, "/admin/ai/bulk/"+jobID+"/cancel", "jobId", jobID)
	require.Equal(t, http.StatusOK, rec.Code)
	close(block)

	require.Eventually(t, func() bool {
		rec := doRequest(t, HandleBulkStatus(registry), http.MethodGet, "/admin/ai/bulk/"+jobID+"/status", "jobId", jobID)
		var snap enrich.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status == enrich.StatusCancelled
	}, 5*time.Second, 10*time.Millisecond)

	// Cancel after the job finished is still a 200.
	rec = doRequest(t, HandleBulkCancel(registry), http.MethodPost, "/admin/ai/bulk/"+jobID+"/cancel", "jobId", jobID)
	assert.Equal(t, http.StatusOK, rec.Code)
}
