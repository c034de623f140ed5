package openaichat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lewisedginton/chat_relay/internal/conversation"
	"github.com/lewisedginton/chat_relay/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}]
}`

func newServer(t *testing.T, status int, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(strings.Replace(completionBody, "%q", `"`+content+`"`, 1)))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	_, err := New("", "gpt-4o-mini", "", nil)
	assert.Error(t, err)

	_, err = New("key", "", "", nil)
	assert.Error(t, err)

	c, err := New("key", "gpt-4o-mini", "", nil)
	require.NoError(t, err)
	assert.Equal(t, Name, c.Name())
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	server := newServer(t, http.StatusOK, "hello", &body)

	c, err := New("key", "gpt-4o-mini", server.URL, nil)
	require.NoError(t, err)

	reply, err := c.Generate(context.Background(), generation.Request{
		Prompt:  "hi",
		History: conversation.History{conversation.UserTurn("a"), conversation.AssistantTurn("b")},
		Params:  generation.DefaultParams(),
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Text)
	assert.NotEmpty(t, reply.Raw)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, float64(512), body["max_tokens"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, 0.9, body["top_p"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 3)
	last := messages[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	assert.Equal(t, "hi", last["content"])
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
}

func TestGenerateEmpty(t *testing.T) {
	server := newServer(t, http.StatusOK, "", nil)
	c, err := New("key", "gpt-4o-mini", server.URL, nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), generation.Request{Prompt: "hi", Params: generation.DefaultParams()})
	assert.ErrorIs(t, err, generation.ErrEmptyGeneration)
}

func TestGenerateUpstreamError(t *testing.T) {
	server := newServer(t, http.StatusInternalServerError, "", nil)
	c, err := New("key", "gpt-4o-mini", server.URL, nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), generation.Request{Prompt: "hi", Params: generation.DefaultParams()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai API error")
	assert.NotErrorIs(t, err, generation.ErrEmptyGeneration)
}
