package server

import (
	"context"
	"fmt"
	"net/http"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	appconfig "github.com/lewisedginton/chat_relay/internal/config"
	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/lewisedginton/chat_relay/internal/generation/anthropicchat"
	"github.com/lewisedginton/chat_relay/internal/generation/bedrock"
	"github.com/lewisedginton/chat_relay/internal/generation/openaichat"
	"github.com/lewisedginton/chat_relay/internal/generation/textgen"
	"github.com/lewisedginton/chat_relay/internal/relay"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	openaioption "github.com/openai/openai-go/option"
)

// Option customises how the relay and server are composed.
type Option func(*options)

type options struct {
	generator  generation.Generator
	httpClient *http.Client
	version    string
}

// WithGenerator bypasses the configured backend.
func WithGenerator(g generation.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithHTTPClient sets the client shared by the generation backend and the
// readiness probe.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// newHTTPClient builds the process-wide client when none is injected.
var newHTTPClient = func() *http.Client { return &http.Client{} }

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient()
	}
	return o
}

// NewGenerator creates the generation backend selected by cfg. The HTTP
// client is built once by the caller and shared for the life of the process.
func NewGenerator(ctx context.Context, cfg *appconfig.AppConfig, httpClient *http.Client, log logger.Logger) (generation.Generator, error) {
	switch cfg.Generation.Backend {
	case appconfig.BackendTextgen:
		log.Info("Initializing textgen backend", logger.StringField("base_url", cfg.Generation.BaseURL))
		client, err := textgen.New(cfg.Generation.BaseURL,
			textgen.WithHTTPClient(httpClient),
			textgen.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create textgen client: %w", err)
		}
		return client, nil

	case appconfig.BackendBedrock:
		log.Info("Initializing Bedrock backend",
			logger.ModelField(cfg.Generation.ModelID),
			logger.StringField("region", cfg.Bedrock.Region),
		)
		client, err := bedrock.NewFromEnvironment(ctx, cfg.Bedrock.Region, cfg.Generation.ModelID, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create bedrock client: %w", err)
		}
		return client, nil

	case appconfig.BackendOpenAI:
		log.Info("Initializing OpenAI backend", logger.ModelField(cfg.OpenAI.Model))
		client, err := openaichat.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, log,
			openaioption.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return client, nil

	case appconfig.BackendAnthropic:
		log.Info("Initializing Anthropic backend", logger.ModelField(cfg.Anthropic.Model))
		client, err := anthropicchat.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, log,
			anthropicoption.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported generation backend: %s", cfg.Generation.Backend)
	}
}

// BuildRelay composes the generator and the relay handler shared by every transport.
func BuildRelay(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, rec relay.Recorder, opts ...Option) (*relay.Relay, error) {
	return buildRelay(ctx, cfg, log, rec, buildOptions(opts))
}

func buildRelay(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, rec relay.Recorder, o options) (*relay.Relay, error) {
	gen := o.generator
	if gen == nil {
		var err error
		gen, err = NewGenerator(ctx, cfg, o.httpClient, log)
		if err != nil {
			return nil, err
		}
	}

	return relay.New(relay.Config{
		Generator: gen,
		Params:    cfg.Generation.Params(),
		ModelID:   cfg.ActiveModel(),
		Timeout:   cfg.Generation.Timeout,
		Logger:    log,
		Recorder:  rec,
	})
}
