// Package assistant wraps the text-completion model for field extraction and
// reply generation. Both adapters absorb every failure.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/llm"
	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/metrics"
)

// Extractor pulls structured fields and classification out of a message.
type Extractor struct {
	client  llm.LLMClient
	timeout time.Duration
	prompt  string
}

// NewExtractor creates a new extractor.
func NewExtractor(client llm.LLMClient, timeout time.Duration, prompts config.Prompts) *Extractor {
	return &Extractor{
		client:  client,
		timeout: timeout,
		prompt:  prompts.Extraction,
	}
}

// extractionInput is the user content sent to the model.
type extractionInput struct {
	Message  string          `json:"message"`
	Captured domain.Captured `json:"captured"`
}

// extractionOutput is the strict object expected from the model.
type extractionOutput struct {
	Name            *string `json:"name"`
	Reason          *string `json:"reason"`
	City            *string `json:"city"`
	PreferredTime   *string `json:"preferred_time"`
	Priority        *string `json:"priority"`
	Label           *string `json:"label"`
	SuggestedAction *string `json:"suggested_action"`
}

// Extract returns the fields found in message, or nil when the call fails for
// any reason. A nil result means no new information.
func (e *Extractor) Extract(ctx context.Context, captured domain.Captured, message string) *domain.Extraction {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	input, err := json.Marshal(extractionInput{Message: message, Captured: captured})
	if err != nil {
		log.Printf("WARN: failed to marshal extraction input: %v", err)
		return nil
	}

	content, err := e.client.Complete(ctx, &llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: e.prompt},
			{Role: llm.RoleUser, Content: string(input)},
		},
		JSON:      true,
		MaxTokens: 300,
	})
	if err != nil {
		log.Printf("WARN: field extraction failed: %v", err)
		metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorExtraction).Inc()
		return nil
	}

	out, err := parseExtraction(content)
	if err != nil {
		log.Printf("WARN: field extraction returned malformed output: %v", err)
		metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorExtraction).Inc()
		return nil
	}
	return out
}

// parseExtraction decodes the model output, discarding blank values and
// classification values outside the known sets.
func parseExtraction(content string) (*domain.Extraction, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, fmt.Errorf("empty output")
	}

	var raw extractionOutput
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
	}

	out := &domain.Extraction{Fields: make(domain.Captured)}
	for field, value := range map[domain.Field]*string{
		domain.FieldName:          raw.Name,
		domain.FieldReason:        raw.Reason,
		domain.FieldCity:          raw.City,
		domain.FieldPreferredTime: raw.PreferredTime,
	} {
		if v := clean(value); v != "" {
			out.Fields[field] = v
		}
	}

	if p := domain.Priority(clean(raw.Priority)); p.Valid() {
		out.Classification.Priority = &p
	}
	if l := domain.Label(clean(raw.Label)); l.Valid() {
		out.Classification.Label = &l
	}
	if a := domain.Action(clean(raw.SuggestedAction)); a.Valid() {
		out.Classification.SuggestedAction = &a
	}

	return out, nil
}

func clean(v *string) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
