package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	var capturedHeaderID, capturedContextID string
	handler := CorrelationID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedHeaderID = r.Header.Get(logger.CorrelationIDHeader)
		capturedContextID = logger.GetCorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(incoming string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		if incoming != "" {
			req.Header.Set(logger.CorrelationIDHeader, incoming)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder
	}

	t.Run("generates a UUID when none is supplied", func(t *testing.T) {
		recorder := serve("")

		_, err := uuid.Parse(capturedHeaderID)
		require.NoError(t, err)
		assert.Equal(t, capturedHeaderID, capturedContextID)
		assert.Equal(t, capturedHeaderID, recorder.Header().Get(logger.CorrelationIDHeader))
	})

	t.Run("keeps a valid client UUID", func(t *testing.T) {
		existingID := uuid.New().String()
		recorder := serve(existingID)

		assert.Equal(t, existingID, capturedHeaderID)
		assert.Equal(t, existingID, capturedContextID)
		assert.Equal(t, existingID, recorder.Header().Get(logger.CorrelationIDHeader))
	})

	for name, bad := range map[string]string{
		"replaces an invalid id":    "not-a-uuid",
		"replaces a truncated UUID": "123e4567-e89b-12d3-a456-42661417400",
		"replaces an injection try": "id\nX-Admin: true",
	} {
		t.Run(name, func(t *testing.T) {
			serve(bad)

			assert.NotEqual(t, bad, capturedHeaderID)
			assert.Equal(t, capturedHeaderID, capturedContextID)
			_, err := uuid.Parse(capturedHeaderID)
			assert.NoError(t, err)
		})
	}
}
