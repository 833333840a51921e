package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftd/internal/scheduler"
)

type noopJob struct {
	runs int
}

func (j *noopJob) Run() error   { j.runs++; return nil }
func (j *noopJob) Name() string { return "noop" }

func setupTestHandlers(t *testing.T) (*SystemHandlers, *chi.Mux) {
	t.Helper()

	h := NewSystemHandlers(nil, scheduler.New(zerolog.Nop()), zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return h, router
}

func TestHandleSystemStatus(t *testing.T) {
	_, router := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/system/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestHandleDatabaseStatsEmpty(t *testing.T) {
	_, router := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/system/database/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleTriggerJob(t *testing.T) {
	h, router := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/system/jobs/noop", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "job not registered yet")

	job := &noopJob{}
	h.SetJob(job)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/system/jobs/noop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, job.runs)
}
