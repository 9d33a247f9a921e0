// Package llm provides an abstraction for LLM API clients.
package llm

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single chat completion request.
type ChatRequest struct {
	Messages    []ChatMessage
	JSON        bool // constrain the response to a JSON object
	Temperature float32
	MaxTokens   int
}

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	// Complete sends a chat completion request and returns the content of the
	// first choice.
	Complete(ctx context.Context, req *ChatRequest) (string, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
