package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HealthConfig holds health check configuration
type HealthConfig struct {
	LivenessPath     string        `env:"HEALTH_LIVENESS_PATH" yaml:"liveness_path" default:"/health/live"`
	ReadinessPath    string        `env:"HEALTH_READINESS_PATH" yaml:"readiness_path" default:"/health/ready"`
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"health_timeout" default:"5s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`
	// ProbeUpstream adds the generation service to the readiness checks
	ProbeUpstream bool `env:"HEALTH_PROBE_UPSTREAM" yaml:"probe_upstream" default:"false"`
}

// Validate checks thresholds and timeouts
func (h HealthConfig) Validate() error {
	var result error
	if h.FailureThreshold < 1 {
		result = multierror.Append(result, fmt.Errorf("health failure_threshold must be at least 1, got %d", h.FailureThreshold))
	}
	if h.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("health_timeout must be greater than 0"))
	}
	return result
}
