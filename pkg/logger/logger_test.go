package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Format: "json", Service: "test-service", Output: &buf})

	log.Info("test message", StringField("test_key", "test_value"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["msg"])
	assert.Equal(t, "test-service", entries[0]["service"])
	assert.Equal(t, "test_value", entries[0]["test_key"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: WarnLevel, Output: &buf})

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestLoggerWithFieldsIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})
	child := base.WithFields(StringField("key1", "value1"))

	base.Info("from base")
	child.Info("from child")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "key1")
	assert.Equal(t, "value1", entries[1]["key1"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Format: "text", Output: &buf})

	log.Info("plain message", StringField("k", "v"))

	assert.Contains(t, buf.String(), "plain message")
	assert.Contains(t, buf.String(), "k=v")
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, LogField{Key: "n", Value: "42"}, IntField("n", 42))
	assert.Equal(t, LogField{Key: "n", Value: "42"}, Int64Field("n", 42))
	assert.Equal(t, LogField{Key: "b", Value: "true"}, BoolField("b", true))
	assert.Equal(t, LogField{Key: "d", Value: "1.5s"}, DurationField("d", 1500*time.Millisecond))
	assert.Equal(t, LogField{Key: "error", Value: "<nil>"}, ErrorField(nil))
	assert.Equal(t, LogField{Key: "model", Value: "m1"}, ModelField("m1"))
	assert.Equal(t, LogField{Key: "payload", Value: `{"a":1}`}, PayloadField("payload", []byte(`{"a":1}`)))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationIDFromContext(ctx))

	ctx, id := EnsureCorrelationID(ctx)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, GetCorrelationIDFromContext(ctx))

	again, sameID := EnsureCorrelationID(ctx)
	assert.Equal(t, id, sameID)
	assert.Equal(t, ctx, again)
}

func TestGetLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})
	ctx := WithCorrelationIDContext(context.Background(), "abc")

	GetLoggerFromContext(ctx, base).Info("hello")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0][CorrelationIDFieldKey])
}

func TestEnsureHTTPCorrelationID(t *testing.T) {
	t.Run("keeps a valid client id", func(t *testing.T) {
		existing := uuid.New().String()
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.Header.Set(CorrelationIDHeader, existing)

		req, id := EnsureHTTPCorrelationID(req)
		assert.Equal(t, existing, id)
		assert.Equal(t, existing, GetCorrelationIDFromContext(req.Context()))
	})

	t.Run("replaces an invalid client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.Header.Set(CorrelationIDHeader, "not-a-uuid")

		req, id := EnsureHTTPCorrelationID(req)
		assert.NotEqual(t, "not-a-uuid", id)
		assert.Equal(t, id, req.Header.Get(CorrelationIDHeader))
	})
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Output: &buf})

	handler := log.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "HTTP request received", entries[0]["msg"])
	assert.Equal(t, "HTTP response sent", entries[1]["msg"])
	assert.Equal(t, "418", entries[1]["http_status"])
	assert.Equal(t, "15", entries[1]["response_bytes"])
	assert.Equal(t, entries[0][CorrelationIDFieldKey], entries[1][CorrelationIDFieldKey])
}
