package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrStructuredUnsupported is returned by MockClient for JSON-mode requests, so
// callers exercise their fallback paths in mock mode.
var ErrStructuredUnsupported = errors.New("mock client does not support structured output")

// MockClient is a mock implementation of LLMClient for demos and local runs.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// Complete returns a canned reply based on the last user message.
func (m *MockClient) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.JSON {
		return "", ErrStructuredUnsupported
	}
	return m.generateMockResponse(req), nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] ¡Hola! Soy la asistente virtual. ¿Cómo te llamas?"
	}

	return fmt.Sprintf("[MOCK] Recibí tu mensaje: %q. ¿Me cuentas algo más?", truncate(lastUserMessage, 100))
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
