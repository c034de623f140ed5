package checkers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPChecker probes an HTTP endpoint. Any response below 500 counts as
// reachable: a generation service commonly answers 404 or 405 on its base URL.
type HTTPChecker struct {
	url    string
	name   string
	method string
	client *http.Client
}

// HTTPOption configures an HTTPChecker.
type HTTPOption func(*HTTPChecker)

// WithClient replaces the default 10 second timeout client.
func WithClient(client *http.Client) HTTPOption {
	return func(h *HTTPChecker) {
		if client != nil {
			h.client = client
		}
	}
}

// WithMethod sets the probe method. Default is GET.
func WithMethod(method string) HTTPOption {
	return func(h *HTTPChecker) {
		if method != "" {
			h.method = method
		}
	}
}

// NewHTTPChecker creates a checker for url. If name is empty the URL is used.
func NewHTTPChecker(url, name string, opts ...HTTPOption) *HTTPChecker {
	if name == "" {
		name = url
	}
	h := &HTTPChecker{
		url:    url,
		name:   name,
		method: http.MethodGet,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the name of this health check.
func (h *HTTPChecker) Name() string {
	return h.name
}

// Check issues the probe request and fails on transport errors or 5xx.
func (h *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
	}
	return nil
}
