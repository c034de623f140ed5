// Package bedrock generates replies with an Amazon Bedrock Nova model.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

const (
	// Name is the backend identifier used in configuration and metrics.
	Name = "bedrock"

	// DefaultModelID is the Nova Lite cross-region inference profile.
	DefaultModelID = "us.amazon.nova-lite-v1:0"

	// DefaultRegion is used when neither configuration nor the environment names one.
	DefaultRegion = "us-east-1"
)

// InvokeModelAPI is the slice of the Bedrock runtime client this package uses.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type novaText struct {
	Text string `json:"text"`
}

type novaMessage struct {
	Role    string     `json:"role"`
	Content []novaText `json:"content"`
}

type novaInferenceConfig struct {
	MaxTokens     int      `json:"maxTokens"`
	StopSequences []string `json:"stopSequences"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
}

type novaRequest struct {
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaResponse struct {
	Output struct {
		Message struct {
			Content []novaText `json:"content"`
		} `json:"message"`
	} `json:"output"`
}

// Client is a generation.Generator backed by InvokeModel.
type Client struct {
	api     InvokeModelAPI
	modelID string
	log     logger.Logger
}

// New wraps an existing runtime client.
func New(api InvokeModelAPI, modelID string, log logger.Logger) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock runtime client is required")
	}
	if modelID == "" {
		modelID = DefaultModelID
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Client{api: api, modelID: modelID, log: log}, nil
}

// NewFromEnvironment loads the default AWS credential chain and builds a
// runtime client for region. An empty region falls back to AWS_REGION and
// then to DefaultRegion. Retries are disabled: the relay makes one call.
func NewFromEnvironment(ctx context.Context, region, modelID string, log logger.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(1),
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	return New(bedrockruntime.NewFromConfig(cfg), modelID, log)
}

// Name implements generation.Generator.
func (c *Client) Name() string { return Name }

// ModelID returns the model the client invokes.
func (c *Client) ModelID() string { return c.modelID }

// Generate sends the full history plus the prompt and returns the first text block.
func (c *Client) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	log := logger.GetLoggerFromContext(ctx, c.log)

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return generation.Reply{}, fmt.Errorf("marshal bedrock request: %w", err)
	}
	log.Debug("Invoking bedrock model",
		logger.ModelField(c.modelID),
		logger.PayloadField("request_payload", body),
	)

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return generation.Reply{}, fmt.Errorf("bedrock %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
		}
		return generation.Reply{}, fmt.Errorf("bedrock invoke failed: %w", err)
	}
	log.Debug("Received bedrock response", logger.PayloadField("response_payload", out.Body))

	var decoded novaResponse
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return generation.Reply{}, fmt.Errorf("decode bedrock response: %w", err)
	}
	content := decoded.Output.Message.Content
	if len(content) == 0 || content[0].Text == "" {
		return generation.Reply{}, generation.ErrEmptyGeneration
	}

	return generation.Reply{Text: content[0].Text, Raw: out.Body}, nil
}

func buildRequest(req generation.Request) novaRequest {
	messages := req.Messages()
	out := novaRequest{
		Messages: make([]novaMessage, 0, len(messages)),
		InferenceConfig: novaInferenceConfig{
			MaxTokens:     req.Params.MaxNewTokens,
			StopSequences: []string{},
			Temperature:   req.Params.Temperature,
			TopP:          req.Params.TopP,
		},
	}
	// Nova has no do_sample switch; greedy decoding is temperature zero.
	if !req.Params.DoSample {
		out.InferenceConfig.Temperature = 0
	}
	for _, m := range messages {
		out.Messages = append(out.Messages, novaMessage{
			Role:    string(m.Role),
			Content: []novaText{{Text: m.Content}},
		})
	}
	return out
}
