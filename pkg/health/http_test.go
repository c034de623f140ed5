package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveProbe(t *testing.T, handler http.HandlerFunc) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w, response
}

func TestLivenessHandler(t *testing.T) {
	t.Run("healthy response", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck(&mockCheck{name: "process"})

		w, response := serveProbe(t, h.LivenessHandler())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, StatusHealthy, response.Status)
		assert.Equal(t, "ok", response.Checks["process"].Status)
	})

	t.Run("unhealthy response", func(t *testing.T) {
		h := New(WithFailureThreshold(1))
		h.AddLivenessCheck(&mockCheck{name: "process", err: errors.New("service unavailable")})

		w, response := serveProbe(t, h.LivenessHandler())

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, StatusUnhealthy, response.Status)
		assert.NotEmpty(t, response.Message)
		assert.Equal(t, "error", response.Checks["process"].Status)
		assert.Equal(t, "service unavailable", response.Checks["process"].Error)
	})
}

func TestReadinessHandler(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		w, response := serveProbe(t, New().ReadinessHandler())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StatusHealthy, response.Status)
		assert.Empty(t, response.Checks)
	})

	t.Run("degraded still serves", func(t *testing.T) {
		h := New(WithFailureThreshold(1))
		h.AddOptionalReadinessCheck(&mockCheck{name: "generation", err: errors.New("refused")})

		w, response := serveProbe(t, h.ReadinessHandler())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StatusDegraded, response.Status)
		assert.True(t, response.Checks["generation"].Optional)
		assert.Equal(t, "refused", response.Checks["generation"].Error)
	})
}
