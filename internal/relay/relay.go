// Package relay implements the chat relay handler: parse the caller's message
// and history, make one generation call, and wrap the outcome in an envelope.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lewisedginton/chat_relay/internal/conversation"
	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/lewisedginton/chat_relay/pkg/metrics"
)

// Invocation is one inbound call as seen by the relay.
type Invocation struct {
	Body []byte
	// Claims are the gateway's authorizer claims. They are logged, never enforced.
	Claims map[string]any
}

// Result is the outcome of Handle. Exactly one of Err or Reply/History is set.
type Result struct {
	Reply   string
	History conversation.History
	Err     *Error
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Failure builds a failed Result. An err that already is an *Error keeps its kind.
func Failure(kind ErrorKind, err error) Result {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return Result{Err: relayErr}
	}
	return Result{Err: &Error{Kind: kind, Err: err}}
}

// Recorder receives outcome and latency observations.
type Recorder interface {
	ObserveOutcome(outcome string)
	ObserveGeneration(backend string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(string) {}
func (nopRecorder) ObserveGeneration(string, time.Duration) {}

// Config wires a Relay.
type Config struct {
	Generator generation.Generator
	Params    generation.Params
	// ModelID is informational; it is logged with every invocation.
	ModelID string
	// Timeout bounds the generation call. Zero means no limit beyond ctx.
	Timeout  time.Duration
	Logger   logger.Logger
	Recorder Recorder
}

// Relay is safe for concurrent use; it holds no per-invocation state.
type Relay struct {
	gen      generation.Generator
	params   generation.Params
	modelID  string
	timeout  time.Duration
	log      logger.Logger
	recorder Recorder
}

// New validates cfg and builds a Relay. Zero Params fall back to the defaults.
func New(cfg Config) (*Relay, error) {
	if cfg.Generator == nil {
		return nil, errors.New("relay: generator is required")
	}
	params := cfg.Params
	if params == (generation.Params{}) {
		params = generation.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("relay: timeout cannot be negative, got %s", cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Relay{
		gen:      cfg.Generator,
		params:   params,
		modelID:  cfg.ModelID,
		timeout:  cfg.Timeout,
		log:      cfg.Logger,
		recorder: cfg.Recorder,
	}, nil
}

type incomingRequest struct {
	Message             *string              `json:"message"`
	ConversationHistory conversation.History `json:"conversationHistory"`
}

func parseRequest(body []byte) (string, conversation.History, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil, errors.New("request body is empty")
	}
	var req incomingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Message == nil {
		return "", nil, ErrMissingMessage
	}
	if err := req.ConversationHistory.Validate(); err != nil {
		return "", nil, err
	}
	return *req.Message, req.ConversationHistory, nil
}

// Handle runs one invocation end to end. It never returns a Go error; every
// failure is carried in Result.Err.
func (r *Relay) Handle(ctx context.Context, inv Invocation) Result {
	log := logger.GetLoggerFromContext(ctx, r.log)

	log.Debug("Received event", logger.PayloadField("event", inv.Body))
	if caller := CallerIdentity(inv.Claims); caller != "" {
		log.Info("Request from authenticated caller", logger.StringField("caller", caller))
	}
	log.Info("Relaying message",
		logger.ModelField(r.modelID),
		logger.StringField("backend", r.gen.Name()),
	)

	message, history, err := parseRequest(inv.Body)
	if err != nil {
		return r.finish(log, Failure(KindRequest, err))
	}

	working := history.Append(conversation.UserTurn(message))

	genCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := r.gen.Generate(genCtx, generation.Request{
		Prompt:  message,
		History: history,
		Params:  r.params,
	})
	r.recorder.ObserveGeneration(r.gen.Name(), time.Since(start))

	if err != nil {
		if errors.Is(err, generation.ErrEmptyGeneration) {
			return r.finish(log, Failure(KindEmptyGeneration, err))
		}
		return r.finish(log, Failure(KindUpstream, err))
	}
	if reply.Text == "" {
		return r.finish(log, Failure(KindEmptyGeneration, generation.ErrEmptyGeneration))
	}

	return r.finish(log, Result{
		Reply:   reply.Text,
		History: working.Append(conversation.AssistantTurn(reply.Text)),
	})
}

func (r *Relay) finish(log logger.Logger, res Result) Result {
	if res.Err != nil {
		log.Error("Relay invocation failed",
			logger.StringField("kind", res.Err.Kind.String()),
			logger.ErrorField(res.Err),
		)
		r.recorder.ObserveOutcome(res.Err.Kind.String())
		return res
	}
	log.Info("Relay invocation succeeded", logger.IntField("history_length", len(res.History)))
	r.recorder.ObserveOutcome(metrics.OutcomeSuccess)
	return res
}

// CallerIdentity picks a printable identity from gateway claims, preferring
// the email claim over cognito:username.
func CallerIdentity(claims map[string]any) string {
	for _, key := range []string{"email", "cognito:username"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
