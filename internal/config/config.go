// Package config holds the chat relay's application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/lewisedginton/chat_relay/pkg/config"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	config.CommonConfig `yaml:",inline"`

	HTTP    config.HTTPServerConfig `yaml:",inline"`
	Metrics config.MetricsConfig    `yaml:",inline"`
	Health  HealthConfig            `yaml:",inline"`

	// RelayPath is the route that accepts chat messages
	RelayPath string `env:"RELAY_PATH" yaml:"relay_path" default:"/chat"`

	Generation GenerationConfig `yaml:",inline"`
	Bedrock    BedrockConfig    `yaml:",inline"`
	OpenAI     OpenAIConfig     `yaml:",inline"`
	Anthropic  AnthropicConfig  `yaml:",inline"`
}

// Load reads configuration from an optional YAML file and the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := config.GetConfig(&cfg, path, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	if err := c.CommonConfig.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.HTTP.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Metrics.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Health.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if !strings.HasPrefix(c.RelayPath, "/") {
		result = multierror.Append(result, fmt.Errorf("relay_path must start with '/', got %q", c.RelayPath))
	}
	if err := c.Generation.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.Generation.Backend {
	case BackendOpenAI:
		if err := c.OpenAI.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	case BackendAnthropic:
		if err := c.Anthropic.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.LogLevel)
}

// ActiveModel returns the model identifier of the selected backend.
func (c *AppConfig) ActiveModel() string {
	switch c.Generation.Backend {
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAnthropic:
		return c.Anthropic.Model
	default:
		return c.Generation.ModelID
	}
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("log_level", c.LogLevel),
		logger.StringField("log_format", c.LogFormat),
		logger.IntField("http_port", c.HTTP.Port),
		logger.StringField("relay_path", c.RelayPath),
		logger.StringField("backend", c.Generation.Backend),
		logger.StringField("base_url", c.Generation.BaseURL),
		logger.ModelField(c.ActiveModel()),
		logger.DurationField("generation_timeout", c.Generation.Timeout),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.BoolField("openai_key_set", c.OpenAI.APIKey != ""),
		logger.BoolField("anthropic_key_set", c.Anthropic.APIKey != ""),
	)
}
