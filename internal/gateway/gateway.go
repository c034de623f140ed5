// Package gateway adapts API Gateway proxy events delivered through AWS Lambda to the relay.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/lewisedginton/chat_relay/internal/relay"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// DefaultRegion is reported when the function ARN carries no region.
const DefaultRegion = "us-east-1"

// Handler serves API Gateway proxy events.
type Handler struct {
	relay *relay.Relay
	log   logger.Logger
}

// NewHandler wraps r for Lambda.
func NewHandler(r *relay.Relay, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{relay: r, log: log}
}

// Handle never returns an error; failures become 500 envelopes so API
// Gateway always receives the CORS headers.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = withCorrelationID(ctx, req)
	log := logger.GetLoggerFromContext(ctx, h.log)

	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log.Debug("Lambda invocation",
			logger.StringField("region", RegionFromARN(lc.InvokedFunctionArn)),
			logger.StringField("function_arn", lc.InvokedFunctionArn),
		)
	}

	if req.HTTPMethod == http.MethodOptions {
		return toProxy(relay.PreflightResponse()), nil
	}

	body, err := decodeBody(req)
	if err != nil {
		log.Error("Failed to decode event body", logger.ErrorField(err))
		return toProxy(relay.BuildResponse(relay.Failure(relay.KindRequest, err))), nil
	}

	res := h.relay.Handle(ctx, relay.Invocation{Body: body, Claims: Claims(req)})
	return toProxy(relay.BuildResponse(res)), nil
}

// Start hands h to the Lambda runtime. It blocks for the life of the process.
func Start(h *Handler) {
	lambda.Start(h.Handle)
}

// RegionFromARN returns the region of a function ARN, or DefaultRegion.
func RegionFromARN(functionARN string) string {
	parsed, err := arn.Parse(functionARN)
	if err != nil || parsed.Region == "" {
		return DefaultRegion
	}
	return parsed.Region
}

// Claims extracts the Cognito authorizer claims, if any.
func Claims(req events.APIGatewayProxyRequest) map[string]any {
	switch claims := req.RequestContext.Authorizer["claims"].(type) {
	case map[string]any:
		return claims
	case map[string]string:
		out := make(map[string]any, len(claims))
		for k, v := range claims {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}

func withCorrelationID(ctx context.Context, req events.APIGatewayProxyRequest) context.Context {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return logger.WithCorrelationIDContext(ctx, lc.AwsRequestID)
	}
	if req.RequestContext.RequestID != "" {
		return logger.WithCorrelationIDContext(ctx, req.RequestContext.RequestID)
	}
	ctx, _ = logger.EnsureCorrelationID(ctx)
	return ctx
}

func decodeBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return body, nil
}

func toProxy(resp relay.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}
