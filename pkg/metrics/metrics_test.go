package metrics

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomHighPort() int {
	return 20000 + rand.Intn(20000)
}

func TestMetrics_Listen(t *testing.T) {
	m := NewMetrics(true, true, logger.NewNopLogger())
	port := getRandomHighPort()
	errs := m.Listen(port)
	t.Cleanup(func() {
		_ = m.Shutdown(context.Background())
		_, open := <-errs
		assert.False(t, open)
	})

	for i := 0; i < 5; i++ {
		m.IncrementHTTPResponseCounter(http.StatusOK)
		m.ObserveOutcome(OutcomeUpstreamError)
	}

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		body = string(raw)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, `chat_relay_http_responses_total{code="200"} 5`)
	assert.Contains(t, body, `chat_relay_relay_invocations_total{outcome="upstream_error"} 5`)
	assert.Contains(t, body, "chat_relay_http_requests_total 0")
}

func TestMetrics_RelayCollectors(t *testing.T) {
	m := NewMetrics(false, true, nil)

	m.ObserveOutcome(OutcomeSuccess)
	m.ObserveOutcome(OutcomeSuccess)
	m.ObserveOutcome(OutcomeEmptyGeneration)
	m.ObserveGeneration("textgen", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RelayOutcomesCounter.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayOutcomesCounter.WithLabelValues(OutcomeEmptyGeneration)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GenerationDurationHistogram))
	assert.Nil(t, m.HTTPResponsesCounter)
}

func TestMetrics_DisabledCollectorsAreNoOps(t *testing.T) {
	m := NewMetrics(false, false, nil)

	assert.NotPanics(t, func() {
		m.ObserveOutcome(OutcomeSuccess)
		m.ObserveGeneration("bedrock", time.Second)
		m.IncrementHTTPResponseCounter(http.StatusInternalServerError)
	})

	called := false
	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestMetrics_SetCustomMetrics(t *testing.T) {
	m := NewMetrics(false, false, nil)
	custom := prometheus.NewGauge(prometheus.GaugeOpts{Name: "custom_gauge", Help: "custom"})
	m.AddCustomMetric(custom)
	custom.Set(3)

	expected := "# HELP custom_gauge custom\n# TYPE custom_gauge gauge\ncustom_gauge 3\n"
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "custom_gauge"))
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(true, false, nil)

	ok := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	failing := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 3; i++ {
		ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", nil))
	}
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", nil))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.TotalHTTPRequestsCounter))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPResponsesCounter.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPResponsesCounter.WithLabelValues("500")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDurationHistogram))
}

func TestResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, recorder, rw.Unwrap())
}
