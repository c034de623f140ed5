// Package conversation models the chat history a caller carries between relay calls.
package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn builds a turn authored by the caller.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds a turn authored by the model.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// History is an ordered, append-only list of turns.
type History []Turn

// Append returns a new history with t added at the end. The receiver's
// backing array is never written, so a caller's slice stays untouched.
func (h History) Append(t Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, t)
}

// Validate checks every turn carries a known role.
func (h History) Validate() error {
	for i, t := range h {
		if !t.Role.Valid() {
			return fmt.Errorf("conversationHistory[%d]: invalid role %q", i, t.Role)
		}
	}
	return nil
}

// MarshalJSON encodes a nil history as an empty array. Content is not
// HTML-escaped so turns round-trip byte for byte.
func (h History) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]Turn(h)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// LoadFile reads a JSON array of turns from path.
func LoadFile(path string) (History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode history file: %w", err)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}
