// Package openaichat generates replies through an OpenAI-compatible chat completions API.
package openaichat

import (
	"context"
	"errors"
	"fmt"

	"github.com/lewisedginton/chat_relay/internal/conversation"
	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Name is the backend identifier used in configuration and metrics.
const Name = "openai"

// Client is a generation.Generator backed by chat completions.
type Client struct {
	client    openai.Client
	modelName string
	log       logger.Logger
}

// New creates a client. baseURL is optional and points the SDK at any
// OpenAI-compatible server. SDK retries are disabled.
func New(apiKey, modelName, baseURL string, log logger.Logger, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if modelName == "" {
		return nil, errors.New("openai model name is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}

	return &Client{
		client:    openai.NewClient(append(base, opts...)...),
		modelName: modelName,
		log:       log,
	}, nil
}

// Name implements generation.Generator.
func (c *Client) Name() string { return Name }

// Generate sends the history and prompt as chat messages.
func (c *Client) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	log := logger.GetLoggerFromContext(ctx, c.log)

	params := openai.ChatCompletionNewParams{
		Model:     c.modelName,
		Messages:  toMessages(req.Messages()),
		MaxTokens: openai.Int(int64(req.Params.MaxNewTokens)),
	}
	if req.Params.DoSample {
		params.Temperature = openai.Float(req.Params.Temperature)
		params.TopP = openai.Float(req.Params.TopP)
	} else {
		params.Temperature = openai.Float(0)
	}

	log.Debug("Sending chat completion request",
		logger.ModelField(c.modelName),
		logger.IntField("messages", len(params.Messages)),
	)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return generation.Reply{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return generation.Reply{}, generation.ErrEmptyGeneration
	}

	raw := []byte(completion.RawJSON())
	log.Debug("Received chat completion", logger.PayloadField("response_payload", raw))

	return generation.Reply{Text: completion.Choices[0].Message.Content, Raw: raw}, nil
}

func toMessages(history conversation.History) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, t := range history {
		if t.Role == conversation.RoleAssistant {
			out = append(out, openai.AssistantMessage(t.Content))
			continue
		}
		out = append(out, openai.UserMessage(t.Content))
	}
	return out
}
