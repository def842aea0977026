package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/service"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "apptsched", Environment: "test", Version: "1.2.3"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         time.Hour,
		},
	}
}

func newRouter(t *testing.T, cfg *config.Config, health HealthCheck) *gin.Engine {
	t.Helper()
	repo := memory.NewAppointmentRepository(zap.NewNop())
	svc := service.NewAppointmentService(repo, nil, nil, nil, zap.NewNop())
	return NewRouter(RouterDeps{
		Config:       cfg,
		Appointments: svc,
		Metrics:      metrics.NewCollector("apptsched", prometheus.NewRegistry()),
		Health:       health,
		Log:          zap.NewNop(),
	})
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	r := newRouter(t, testConfig(), nil)
	rec := get(r, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)

	failing := newRouter(t, testConfig(), func(context.Context) error { return errors.New("db down") })
	rec = get(failing, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestID(t *testing.T) {
	r := newRouter(t, testConfig(), nil)

	rec := get(r, "/api/v1/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	rec = get(r, "/api/v1/appointments", map[string]string{RequestIDHeader: id})
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := newRouter(t, testConfig(), nil)

	rec := get(r, "/api/v1/appointments", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(r, "/api/v1/appointments", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	pre := httptest.NewRecorder()
	r.ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Equal(t, "GET, POST", pre.Header().Get("Access-Control-Allow-Methods"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}
	r := newRouter(t, cfg, nil)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/api/v1/appointments", nil).Code)
	}
	rec := get(r, "/api/v1/appointments", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health and metrics stay reachable for probes.
	assert.Equal(t, http.StatusOK, get(r, "/healthz", nil).Code)
}

func TestIPLimiter_SweepsIdleClients(t *testing.T) {
	l := newIPLimiter(1, 1)
	start := time.Now()

	assert.True(t, l.allow("10.0.0.1", start))
	assert.False(t, l.allow("10.0.0.1", start))
	assert.True(t, l.allow("10.0.0.2", start))

	later := start.Add(10 * time.Minute)
	assert.True(t, l.allow("10.0.0.3", later))
	assert.Len(t, l.limiters, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t, testConfig(), nil)
	get(r, "/api/v1/appointments", nil)

	rec := get(r, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apptsched_http_requests_total{method="GET",path="/api/v1/appointments",status="200"} 1`)
}
