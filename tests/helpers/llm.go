package helpers

import (
	"context"
	"errors"
	"sync"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/llm"
)

// ErrUnavailable simulates a model endpoint that cannot be reached.
var ErrUnavailable = errors.New("llm unavailable")

// ScriptedClient is an llm.LLMClient whose answers are supplied by the test.
// A nil Reply or Extract function behaves as an unavailable endpoint.
type ScriptedClient struct {
	Reply   func(req *llm.ChatRequest) (string, error)
	Extract func(req *llm.ChatRequest) (string, error)

	mu       sync.Mutex
	requests []llm.ChatRequest
}

var _ llm.LLMClient = (*ScriptedClient)(nil)

// Complete records the request and dispatches to Reply or Extract.
func (c *ScriptedClient) Complete(ctx context.Context, req *llm.ChatRequest) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	fn := c.Reply
	if req.JSON {
		fn = c.Extract
	}
	if fn == nil {
		return "", ErrUnavailable
	}
	return fn(req)
}

// Requests returns the recorded requests.
func (c *ScriptedClient) Requests() []llm.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Count returns how many structured (json true) or free-text requests were made.
func (c *ScriptedClient) Count(json bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.requests {
		if r.JSON == json {
			n++
		}
	}
	return n
}

// Static returns a function that always answers content.
func Static(content string) func(*llm.ChatRequest) (string, error) {
	return func(*llm.ChatRequest) (string, error) { return content, nil }
}

// Sequence returns a function answering each content in order, repeating the
// last one once exhausted.
func Sequence(contents ...string) func(*llm.ChatRequest) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(*llm.ChatRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(contents) == 0 {
			return "", nil
		}
		out := contents[i]
		if i < len(contents)-1 {
			i++
		}
		return out, nil
	}
}
