// Package generation defines the contract between the relay and a text generation backend.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/lewisedginton/chat_relay/internal/conversation"
)

// ErrEmptyGeneration is returned when a backend answers without usable text.
//
//nolint:staticcheck // ST1005: message is surfaced verbatim in the failure envelope
var ErrEmptyGeneration = errors.New("No response content from the model")

// Params are the sampling parameters sent with every generation call.
type Params struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	DoSample     bool    `json:"do_sample"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

// DefaultParams returns the relay's fixed sampling settings.
func DefaultParams() Params {
	return Params{
		MaxNewTokens: 512,
		DoSample:     true,
		Temperature:  0.7,
		TopP:         0.9,
	}
}

// Validate rejects parameters no backend accepts.
func (p Params) Validate() error {
	if p.MaxNewTokens <= 0 {
		return fmt.Errorf("max_new_tokens must be positive, got %d", p.MaxNewTokens)
	}
	if p.Temperature < 0 {
		return fmt.Errorf("temperature cannot be negative, got %v", p.Temperature)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got %v", p.TopP)
	}
	return nil
}

// Request is one generation call. History holds the turns before Prompt;
// the prompt itself is not part of it.
type Request struct {
	Prompt  string
	History conversation.History
	Params  Params
}

// Messages returns the history followed by the prompt as a user turn, the
// shape chat-style backends expect.
func (r Request) Messages() conversation.History {
	return r.History.Append(conversation.UserTurn(r.Prompt))
}

// Reply is a backend's answer. Raw keeps the undecoded upstream body for logging.
type Reply struct {
	Text string
	Raw  []byte
}

// Generator performs exactly one blocking generation call per Generate.
// Implementations must be safe for concurrent use and must not retry.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (Reply, error)
}

// StatusError reports a non-2xx answer from an HTTP generation service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}
