package llm

import "context"

// Provider defines the interface for single-shot completion backends.
// Implementations handle protocol-specific details such as request
// formatting, authentication, and response parsing. Both callers in
// this program (planner, policy gate) want one JSON document back, so
// the surface is deliberately a single call.
type Provider interface {
	// Complete sends a system+user prompt pair and returns the raw text
	// of the model's reply.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}
