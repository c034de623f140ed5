package config

import "errors"

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY" yaml:"anthropic_api_key"`
	Model  string `env:"CLAUDE_MODEL" yaml:"anthropic_model" default:"claude-sonnet-4-5-20250929"`
}

// Validate requires an API key
func (a AnthropicConfig) Validate() error {
	if a.APIKey == "" {
		return errors.New("anthropic_api_key is required for the anthropic backend")
	}
	return nil
}
