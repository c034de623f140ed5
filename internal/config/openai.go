package config

import "errors"

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY" yaml:"openai_api_key"`
	Model  string `env:"OPENAI_MODEL" yaml:"openai_model" default:"gpt-4o-mini"`
	// BaseURL points at any OpenAI-compatible server; empty uses the SDK default
	BaseURL string `env:"OPENAI_BASE_URL" yaml:"openai_base_url"`
}

// Validate requires an API key
func (o OpenAIConfig) Validate() error {
	if o.APIKey == "" {
		return errors.New("openai_api_key is required for the openai backend")
	}
	return nil
}
