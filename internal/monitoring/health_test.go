package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func newRouter(hm *HealthMonitor) http.Handler {
	r := chi.NewRouter()
	hm.RegisterRoutes(r, "/health/live", "/health/ready")
	return r
}

func TestLivenessAlwaysHealthy(t *testing.T) {
	hm := NewHealthMonitor(Config{})
	code, body := serve(t, newRouter(hm), "/health/live")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadinessWithoutUpstream(t *testing.T) {
	hm := NewHealthMonitor(Config{})
	code, _ := serve(t, newRouter(hm), "/health/ready")
	assert.Equal(t, http.StatusOK, code)
}

func TestReadinessProbesUpstream(t *testing.T) {
	var upstreamStatus atomic.Int32
	upstreamStatus.Store(http.StatusNotFound)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(upstreamStatus.Load()))
	}))
	defer upstream.Close()

	hm := NewHealthMonitor(Config{UpstreamURL: upstream.URL, FailureThreshold: 1})
	router := newRouter(hm)

	code, body := serve(t, router, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	checks := body["checks"].(map[string]any)
	assert.Contains(t, checks, UpstreamCheckName)

	upstreamStatus.Store(http.StatusBadGateway)
	code, body = serve(t, router, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestReadinessFailsWhileDraining(t *testing.T) {
	hm := NewHealthMonitor(Config{Version: "1.2.3"})
	router := newRouter(hm)

	hm.MarkShuttingDown()
	hm.MarkShuttingDown()

	code, body := serve(t, router, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["message"])

	code, body = serve(t, router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "1.2.3", body["version"])

	code, _ = serve(t, router, "/health/live")
	assert.Equal(t, http.StatusOK, code)
}

func TestCombinedHealth(t *testing.T) {
	hm := NewHealthMonitor(Config{})
	code, body := serve(t, newRouter(hm), "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "dev", body["version"])
	assert.NotEmpty(t, body["uptime"])
}
