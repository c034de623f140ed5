package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/lewisedginton/chat_relay/internal/generation"
)

// Generation backends
const (
	BackendTextgen   = "textgen"
	BackendBedrock   = "bedrock"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// GenerationConfig selects the backend and its sampling parameters
type GenerationConfig struct {
	// Backend is one of textgen, bedrock, openai, anthropic
	Backend string `env:"GENERATION_BACKEND" yaml:"generation_backend" default:"textgen"`

	// BaseURL of the text generation service; "generate" is appended to it
	BaseURL string `env:"GENERATION_BASE_URL" yaml:"generation_base_url"`

	// ModelID is logged with every request and used by the bedrock backend
	ModelID string `env:"MODEL_ID" yaml:"model_id" default:"us.amazon.nova-lite-v1:0"`

	// Timeout bounds one generation call. Zero means no limit.
	Timeout time.Duration `env:"GENERATION_TIMEOUT" yaml:"generation_timeout"`

	MaxNewTokens int     `env:"GENERATION_MAX_NEW_TOKENS" yaml:"max_new_tokens" default:"512"`
	Temperature  float64 `env:"GENERATION_TEMPERATURE" yaml:"temperature" default:"0.7"`
	TopP         float64 `env:"GENERATION_TOP_P" yaml:"top_p" default:"0.9"`
	DoSample     bool    `env:"GENERATION_DO_SAMPLE" yaml:"do_sample" default:"true"`
}

// Params returns the sampling parameters sent with every call.
func (g GenerationConfig) Params() generation.Params {
	return generation.Params{
		MaxNewTokens: g.MaxNewTokens,
		DoSample:     g.DoSample,
		Temperature:  g.Temperature,
		TopP:         g.TopP,
	}
}

// Validate checks the backend name, base URL and sampling parameters
func (g GenerationConfig) Validate() error {
	var result error

	switch g.Backend {
	case BackendTextgen:
		if g.BaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("generation_base_url is required for the %s backend", BackendTextgen))
		} else if u, err := url.Parse(g.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("generation_base_url must be an absolute http(s) URL, got %q", g.BaseURL))
		}
	case BackendBedrock, BackendOpenAI, BackendAnthropic:
	default:
		result = multierror.Append(result, fmt.Errorf("generation_backend must be one of [%s, %s, %s, %s], got %q",
			BackendTextgen, BackendBedrock, BackendOpenAI, BackendAnthropic, g.Backend))
	}

	if g.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("generation_timeout cannot be negative"))
	}
	if err := g.Params().Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}
