package httpmiddleware

import (
	"net/http"

	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// CorrelationID middleware ensures every request carries a correlation ID.
// A client-supplied X-Correlation-ID is kept when it is a valid UUID and
// replaced otherwise. The ID is stored in the request context and echoed on
// the response so callers can match relay logs to their request.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, correlationID := logger.EnsureHTTPCorrelationID(r)
			w.Header().Set(logger.CorrelationIDHeader, correlationID)
			next.ServeHTTP(w, r)
		})
	}
}
