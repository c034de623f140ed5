// Package anthropicchat generates replies through the Anthropic Messages API.
package anthropicchat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/lewisedginton/chat_relay/internal/conversation"
	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// Name is the backend identifier used in configuration and metrics.
const Name = "anthropic"

// DefaultModel is used when no model is configured.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// Client is a generation.Generator backed by Messages.New.
type Client struct {
	client    anthropic.Client
	modelName string
	log       logger.Logger
}

// New creates a client. SDK retries are disabled.
func New(apiKey, modelName string, log logger.Logger, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := anthropic.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)...,
	)

	return &Client{client: client, modelName: modelName, log: log}, nil
}

// Name implements generation.Generator.
func (c *Client) Name() string { return Name }

// Generate sends the history and prompt and joins the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	log := logger.GetLoggerFromContext(ctx, c.log)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: int64(req.Params.MaxNewTokens),
		Messages:  toMessages(req.Messages()),
	}
	if req.Params.DoSample {
		params.Temperature = anthropic.Float(req.Params.Temperature)
		params.TopP = anthropic.Float(req.Params.TopP)
	} else {
		params.Temperature = anthropic.Float(0)
	}

	log.Debug("Sending anthropic request",
		logger.ModelField(c.modelName),
		logger.IntField("messages", len(params.Messages)),
	)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return generation.Reply{}, fmt.Errorf("claude api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return generation.Reply{}, generation.ErrEmptyGeneration
	}

	raw := []byte(resp.RawJSON())
	log.Debug("Received anthropic response", logger.PayloadField("response_payload", raw))

	return generation.Reply{Text: text.String(), Raw: raw}, nil
}

func toMessages(history conversation.History) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, t := range history {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == conversation.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return out
}
