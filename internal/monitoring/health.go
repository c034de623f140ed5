// Package monitoring wires the relay's liveness and readiness probes.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lewisedginton/chat_relay/pkg/health"
	"github.com/lewisedginton/chat_relay/pkg/health/checkers"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// UpstreamCheckName names the generation service readiness check.
const UpstreamCheckName = "generation_service"

// HealthMonitor manages health checks and monitoring endpoints for the application
type HealthMonitor struct {
	checker   *health.HealthChecker
	logger    logger.Logger
	startTime time.Time
	version   string
	draining  atomic.Bool
}

// Config holds configuration for the health monitor
type Config struct {
	Logger  logger.Logger
	Version string
	// UpstreamURL is probed for readiness when set
	UpstreamURL      string
	HTTPClient       *http.Client
	Timeout          time.Duration
	FailureThreshold int
}

// NewHealthMonitor creates a new health monitor with configured checks
func NewHealthMonitor(cfg Config) *HealthMonitor {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	checker := health.New(
		health.WithLogger(cfg.Logger),
		health.WithTimeout(cfg.Timeout),
		health.WithFailureThreshold(cfg.FailureThreshold),
	)

	checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	if cfg.UpstreamURL != "" {
		checker.AddReadinessCheck(checkers.NewHTTPChecker(cfg.UpstreamURL, UpstreamCheckName,
			checkers.WithClient(cfg.HTTPClient),
		))
	}

	return &HealthMonitor{
		checker:   checker,
		logger:    cfg.Logger,
		startTime: time.Now(),
		version:   cfg.Version,
	}
}

// LivenessHandler returns an HTTP handler for liveness probes.
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return hm.checker.LivenessHandler()
}

// ReadinessHandler returns an HTTP handler for readiness probes. It fails
// immediately once MarkShuttingDown has been called.
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	ready := hm.checker.ReadinessHandler()
	return func(w http.ResponseWriter, r *http.Request) {
		if hm.draining.Load() {
			writeJSON(w, http.StatusServiceUnavailable, health.HealthResponse{
				Status:  health.StatusUnhealthy,
				Message: "shutting down",
			})
			return
		}
		ready(w, r)
	}
}

// HealthHandler returns a combined health endpoint with uptime and version.
func (hm *HealthMonitor) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		liveness, livenessErr := hm.checker.CheckLiveness(r.Context())
		readiness, readinessErr := hm.checker.CheckReadiness(r.Context())

		overall := health.StatusHealthy
		if readiness.Status == health.StatusDegraded {
			overall = health.StatusDegraded
		}
		response := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"version":   hm.version,
			"liveness":  liveness.Status,
			"readiness": readiness.Status,
		}

		code := http.StatusOK
		if livenessErr != nil || readinessErr != nil || hm.draining.Load() {
			overall = health.StatusUnhealthy
			code = http.StatusServiceUnavailable
			if err := firstError(livenessErr, readinessErr); err != nil {
				response["error"] = err.Error()
			}
		}
		response["status"] = overall

		writeJSON(w, code, response)
	}
}

// RegisterRoutes mounts the probe endpoints on r.
func (hm *HealthMonitor) RegisterRoutes(r chi.Router, livenessPath, readinessPath string) {
	r.Get("/health", hm.HealthHandler())
	r.Get(livenessPath, hm.LivenessHandler())
	r.Get(readinessPath, hm.ReadinessHandler())
}

// MarkShuttingDown makes readiness fail so load balancers stop routing
// new requests while in-flight ones drain.
func (hm *HealthMonitor) MarkShuttingDown() {
	if hm.draining.CompareAndSwap(false, true) {
		hm.logger.Info("Readiness disabled for shutdown")
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
