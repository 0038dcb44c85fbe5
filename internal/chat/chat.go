// Package chat talks to an OpenAI-compatible chat completion endpoint.
//
// Two clients implement Client: HTTPClient for a real endpoint and
// DemoClient, an offline stand-in that answers simple "add" requests with
// the same action JSON the model would produce.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, true
	}
	return "", false
}

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Client produces the assistant's next message for a conversation.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ErrInvalidResponse is returned when the endpoint answers 2xx without an
// assistant message.
var ErrInvalidResponse = errors.New("invalid response from chat endpoint")

// APIError is a non-2xx answer from the endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.StatusCode)
}
