package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// Check represents a single health check that can succeed or fail.
type Check interface {
	// Name returns the human-readable name of this check
	Name() string

	// Check returns nil if healthy, error if unhealthy
	Check(ctx context.Context) error
}

// CheckFunc adapts a plain function to the Check interface.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

// NewCheckFunc creates a new CheckFunc with the given name and function.
func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string { return c.name }

func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// Status is the aggregated state reported by a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a single health check execution.
type CheckResult struct {
	Name     string
	Healthy  bool
	Optional bool
	Error    string
	Latency  time.Duration
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status Status
	Checks []CheckResult
}

// Healthy reports whether the probe should answer with a 2xx status.
// Degraded still serves traffic.
func (s *HealthStatus) Healthy() bool {
	return s.Status != StatusUnhealthy
}

type registeredCheck struct {
	check    Check
	optional bool
}

// HealthChecker runs liveness and readiness checks. A check only reports
// unhealthy after failureThreshold consecutive failures.
type HealthChecker struct {
	livenessChecks   []registeredCheck
	readinessChecks  []registeredCheck
	timeout          time.Duration
	failureCount     map[string]int
	failureThreshold int
	logger           logger.Logger
	mu               sync.RWMutex
}

// Option is a functional option for configuring HealthChecker.
type Option func(*HealthChecker)

// WithTimeout sets the timeout for individual health checks. Default is 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(h *HealthChecker) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger for health check operations.
func WithLogger(l logger.Logger) Option {
	return func(h *HealthChecker) {
		h.logger = l
	}
}

// WithFailureThreshold sets the number of consecutive failures before a check
// is considered unhealthy. Default is 3.
func WithFailureThreshold(threshold int) Option {
	return func(h *HealthChecker) {
		if threshold > 0 {
			h.failureThreshold = threshold
		}
	}
}

// New creates a new HealthChecker with the given options.
func New(opts ...Option) *HealthChecker {
	h := &HealthChecker{
		timeout:          5 * time.Second,
		failureThreshold: 3,
		failureCount:     make(map[string]int),
		logger:           logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck adds a check deciding whether the process should be restarted.
func (h *HealthChecker) AddLivenessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, registeredCheck{check: check})
}

// AddReadinessCheck adds a check deciding whether the service can take traffic.
func (h *HealthChecker) AddReadinessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, registeredCheck{check: check})
}

// AddOptionalReadinessCheck adds a readiness check whose failure only
// degrades the reported status.
func (h *HealthChecker) AddOptionalReadinessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, registeredCheck{check: check, optional: true})
}

// CheckLiveness executes all liveness checks.
func (h *HealthChecker) CheckLiveness(ctx context.Context) (*HealthStatus, error) {
	h.mu.RLock()
	checks := h.livenessChecks
	h.mu.RUnlock()

	return h.executeChecks(ctx, checks)
}

// CheckReadiness executes all readiness checks.
func (h *HealthChecker) CheckReadiness(ctx context.Context) (*HealthStatus, error) {
	h.mu.RLock()
	checks := h.readinessChecks
	h.mu.RUnlock()

	return h.executeChecks(ctx, checks)
}

// executeChecks runs all checks concurrently and aggregates the results.
func (h *HealthChecker) executeChecks(ctx context.Context, checks []registeredCheck) (*HealthStatus, error) {
	status := &HealthStatus{Status: StatusHealthy, Checks: make([]CheckResult, len(checks))}
	if len(checks) == 0 {
		return status, nil
	}

	var wg sync.WaitGroup
	for i, rc := range checks {
		wg.Add(1)
		go func(idx int, rc registeredCheck) {
			defer wg.Done()
			status.Checks[idx] = h.executeCheck(ctx, rc)
		}(i, rc)
	}
	wg.Wait()

	var failed []string
	for _, result := range status.Checks {
		if result.Healthy {
			continue
		}
		if result.Optional {
			if status.Status == StatusHealthy {
				status.Status = StatusDegraded
			}
			continue
		}
		status.Status = StatusUnhealthy
		failed = append(failed, result.Name)
	}

	if status.Status == StatusUnhealthy {
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

// executeCheck runs a single health check with timeout and failure threshold logic.
func (h *HealthChecker) executeCheck(parentCtx context.Context, rc registeredCheck) CheckResult {
	ctx, cancel := context.WithTimeout(parentCtx, h.timeout)
	defer cancel()

	name := rc.check.Name()
	start := time.Now()
	err := rc.check.Check(ctx)
	latency := time.Since(start)

	result := CheckResult{Name: name, Optional: rc.optional, Latency: latency, Healthy: true}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		h.failureCount[name] = 0
		h.logger.Debug("Health check passed",
			logger.StringField("check", name),
			logger.DurationField("latency", latency),
		)
		return result
	}

	h.failureCount[name]++
	failures := h.failureCount[name]
	if failures < h.failureThreshold {
		h.logger.Debug("Health check failed but below threshold",
			logger.StringField("check", name),
			logger.ErrorField(err),
			logger.IntField("failures", failures),
			logger.IntField("threshold", h.failureThreshold),
		)
		return result
	}

	result.Healthy = false
	result.Error = err.Error()
	h.logger.Warn("Health check failed",
		logger.StringField("check", name),
		logger.ErrorField(err),
		logger.IntField("failures", failures),
		logger.BoolField("optional", rc.optional),
		logger.DurationField("latency", latency),
	)
	return result
}
