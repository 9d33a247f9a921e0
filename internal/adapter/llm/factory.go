package llm

import (
	"log"
	"time"
)

// ModeMock indicates mock mode should be used.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for the given mode. MOCK returns a
// MockClient; anything else returns a real Client.
func NewLLMClient(mode, baseURL, apiKey, model string, timeout time.Duration) LLMClient {
	if mode == ModeMock {
		log.Println("INTAKE_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if apiKey == "" {
		log.Println("WARN: LLM_API_KEY not set, model calls will fail and fall back")
	}

	return NewClient(baseURL, apiKey, model, timeout)
}
