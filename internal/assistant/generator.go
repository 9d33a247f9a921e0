package assistant

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/llm"
	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/metrics"
)

// Generator produces the next conversational reply.
type Generator struct {
	client   llm.LLMClient
	timeout  time.Duration
	window   int
	persona  string
	fallback string
}

// NewGenerator creates a reply generator that sends at most window prior turns.
func NewGenerator(client llm.LLMClient, timeout time.Duration, window int, prompts config.Prompts) *Generator {
	return &Generator{
		client:   client,
		timeout:  timeout,
		window:   window,
		persona:  prompts.Persona,
		fallback: prompts.Fallback,
	}
}

// Fallback returns the fixed reply used when generation fails.
func (g *Generator) Fallback() string {
	return g.fallback
}

// Generate returns the model reply for message given the prior turns. It
// never fails; errors, timeouts and empty output all yield the fallback.
func (g *Generator) Generate(ctx context.Context, history []domain.Turn, message string) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if len(history) > g.window {
		history = history[len(history)-g.window:]
	}

	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: g.persona})
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == domain.RoleSystem {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: turn.Text})
	}
	if message != "" {
		messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: message})
	}

	reply, err := g.client.Complete(ctx, &llm.ChatRequest{
		Messages:    messages,
		Temperature: 0.4,
		MaxTokens:   200,
	})
	if err != nil {
		log.Printf("WARN: reply generation failed: %v", err)
		metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorReply).Inc()
		return g.fallback
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return g.fallback
	}
	return reply
}
