package relay

import (
	"errors"
	"fmt"

	"github.com/lewisedginton/chat_relay/pkg/metrics"
)

// ErrMissingMessage is returned when the request body has no message field.
var ErrMissingMessage = errors.New("missing required field: message")

// ErrorKind tags why an invocation failed. Callers always see a 500; the
// kind only reaches logs and metrics.
type ErrorKind int

const (
	// KindRequest covers malformed or incomplete input.
	KindRequest ErrorKind = iota + 1
	// KindUpstream covers network failures, non-2xx answers and undecodable bodies.
	KindUpstream
	// KindEmptyGeneration means the backend answered without usable text.
	KindEmptyGeneration
)

// String returns the metrics outcome label for k.
func (k ErrorKind) String() string {
	switch k {
	case KindRequest:
		return metrics.OutcomeRequestError
	case KindUpstream:
		return metrics.OutcomeUpstreamError
	case KindEmptyGeneration:
		return metrics.OutcomeEmptyGeneration
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the failure half of a Result.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind, true
	}
	return 0, false
}
