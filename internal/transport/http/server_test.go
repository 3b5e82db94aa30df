package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docfill/internal/bootstrap"
	"docfill/internal/config"
	"docfill/internal/metrics"
	"docfill/internal/repository"
	httptransport "docfill/internal/transport/http"
)

func testApp() *bootstrap.App {
	cfg := &config.Config{
		App:     config.AppConfig{Name: "docfill", Env: "test", GinMode: "test", MaxUploadMB: 1},
		Session: config.SessionConfig{Backend: "memory"},
		LLM:     config.LLMConfig{Provider: "gemini", Model: "gemini-1.5-flash", TimeoutSeconds: 1},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	return &bootstrap.App{
		Config:    cfg,
		Logger:    zap.NewNop(),
		Sessions:  repository.NewMemorySessionStore(time.Minute, time.Minute),
		Generator: bootstrap.NewGenerator(cfg.LLM, time.Second),
		Metrics:   metrics.NewRecorder(),
		StartedAt: time.Now(),
	}
}

func TestHealthz(t *testing.T) {
	router := httptransport.NewRouter(testApp())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "docfill", body["app"])
	assert.Equal(t, "memory", body["session_backend"])
	assert.Equal(t, map[string]any{}, body["dependencies"])
}

func TestMetricsCountRoutes(t *testing.T) {
	router := httptransport.NewRouter(testApp())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview?session_id=missing", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docfill_http_requests_total{method="GET",route="/preview",status="400"} 2`)
}

func TestHistoryRouteNeedsTranscript(t *testing.T) {
	router := httptransport.NewRouter(testApp())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?session_id=x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
