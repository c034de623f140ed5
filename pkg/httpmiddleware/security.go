package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/unrolled/secure"
)

// CORSConfig represents CORS configuration options
type CORSConfig struct {
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowedOrigins   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int

	// OptionsPassthrough hands preflight requests on to the router after the
	// CORS headers are set, so a route can answer them itself.
	OptionsPassthrough bool
}

// DefaultCORSConfig returns a permissive CORS configuration for a public
// JSON POST endpoint. Callers normally replace the header and method lists
// with the exact set their handler advertises.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods:   []string{http.MethodOptions, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowedOrigins:   []string{"*"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// CORS middleware answers browser preflight requests unless OptionsPassthrough
// is set. Non-preflight OPTIONS requests always fall through to the router.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedMethods:     config.AllowedMethods,
		AllowedHeaders:     config.AllowedHeaders,
		AllowedOrigins:     config.AllowedOrigins,
		ExposedHeaders:     config.ExposedHeaders,
		AllowCredentials:   config.AllowCredentials,
		MaxAge:             config.MaxAge,
		OptionsPassthrough: config.OptionsPassthrough,
	})
}

// Security middleware adds security headers
func Security(opts *secure.Options) func(http.Handler) http.Handler {
	var s *secure.Secure
	if opts == nil {
		s = secure.New()
	} else {
		s = secure.New(*opts)
	}

	return s.Handler
}
