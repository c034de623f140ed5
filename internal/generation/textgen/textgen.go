// Package textgen talks to a text-generation HTTP service exposing POST {base}/generate.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// Name is the backend identifier used in configuration and metrics.
const Name = "textgen"

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 8 << 20

type generateRequest struct {
	Prompt       string  `json:"prompt"`
	MaxNewTokens int     `json:"max_new_tokens"`
	DoSample     bool    `json:"do_sample"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Client is a generation.Generator for the /generate endpoint. Only the
// prompt is sent; the service is stateless and never sees the history.
type Client struct {
	endpoint   string
	httpClient *http.Client
	log        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the HTTP client. The default has no timeout, so
// the call is bounded only by the caller's context.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLogger sets the logger used for payload diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// New validates baseURL and builds a client posting to baseURL joined with "generate".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse generation base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("generation base url must be an absolute http(s) url, got %q", baseURL)
	}
	endpoint, err := url.JoinPath(baseURL, "generate")
	if err != nil {
		return nil, fmt.Errorf("build generate endpoint: %w", err)
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		log:        logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements generation.Generator.
func (c *Client) Name() string { return Name }

// Endpoint returns the resolved generate URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Generate posts the prompt and sampling parameters and unwraps generated_text.
func (c *Client) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	log := logger.GetLoggerFromContext(ctx, c.log)

	payload, err := json.Marshal(generateRequest{
		Prompt:       req.Prompt,
		MaxNewTokens: req.Params.MaxNewTokens,
		DoSample:     req.Params.DoSample,
		Temperature:  req.Params.Temperature,
		TopP:         req.Params.TopP,
	})
	if err != nil {
		return generation.Reply{}, fmt.Errorf("marshal generate request: %w", err)
	}
	log.Debug("Sending generation request",
		logger.StringField("endpoint", c.endpoint),
		logger.PayloadField("request_payload", payload),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return generation.Reply{}, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generation.Reply{}, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return generation.Reply{}, fmt.Errorf("read generate response: %w", err)
	}
	log.Debug("Received generation response",
		logger.HTTPStatusField(resp.StatusCode),
		logger.PayloadField("response_payload", body),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return generation.Reply{}, &generation.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return generation.Reply{}, fmt.Errorf("decode generate response: %w", err)
	}
	if decoded.GeneratedText == "" {
		return generation.Reply{}, generation.ErrEmptyGeneration
	}

	return generation.Reply{Text: decoded.GeneratedText, Raw: body}, nil
}
