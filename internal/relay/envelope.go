package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lewisedginton/chat_relay/internal/conversation"
)

// Fixed CORS values sent with every envelope.
const (
	AllowOrigin  = "*"
	AllowHeaders = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token"
	AllowMethods = "OPTIONS,POST"
)

// AllowedHeaders returns AllowHeaders as a list.
func AllowedHeaders() []string {
	return strings.Split(AllowHeaders, ",")
}

// AllowedMethods returns AllowMethods as a list.
func AllowedMethods() []string {
	return strings.Split(AllowMethods, ",")
}

// CORSHeaders returns a fresh copy of the fixed CORS header set.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  AllowOrigin,
		"Access-Control-Allow-Headers": AllowHeaders,
		"Access-Control-Allow-Methods": AllowMethods,
	}
}

// ResponseHeaders returns the CORS headers plus the JSON content type.
func ResponseHeaders() map[string]string {
	h := CORSHeaders()
	h["Content-Type"] = "application/json"
	return h
}

// Response is a transport-neutral HTTP answer.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Write copies r onto w.
func (r Response) Write(w http.ResponseWriter) {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) > 0 {
		_, _ = w.Write(r.Body)
	}
}

type successEnvelope struct {
	Success             bool                 `json:"success"`
	Response            string               `json:"response"`
	ConversationHistory conversation.History `json:"conversationHistory"`
}

type failureEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// BuildResponse turns a Result into its envelope: 200 on success, 500 on any
// error kind.
func BuildResponse(res Result) Response {
	if res.Err != nil {
		return ErrorResponse(res.Err.Error())
	}
	body, err := encode(successEnvelope{
		Success:             true,
		Response:            res.Reply,
		ConversationHistory: res.History,
	})
	if err != nil {
		return ErrorResponse(err.Error())
	}
	return Response{StatusCode: http.StatusOK, Headers: ResponseHeaders(), Body: body}
}

// ErrorResponse builds the failure envelope for msg.
func ErrorResponse(msg string) Response {
	body, err := encode(failureEnvelope{Error: msg})
	if err != nil {
		body = []byte(`{"success":false,"error":"internal error"}`)
	}
	return Response{StatusCode: http.StatusInternalServerError, Headers: ResponseHeaders(), Body: body}
}

// PreflightResponse answers an OPTIONS request.
func PreflightResponse() Response {
	return Response{StatusCode: http.StatusOK, Headers: CORSHeaders()}
}

// encode marshals v without HTML escaping so replies are relayed verbatim.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
