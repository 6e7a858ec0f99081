// Package upstream implements the Upstream Client contract: a best-effort
// query across OpenAI-, Anthropic-, and Gemini-compatible chat endpoints,
// with retry/backoff, a model-catalog cache, and a process-wide concurrency
// permit pool.
package upstream

import "context"

// Message is a single turn in a chat history sent to a provider.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Request carries everything the Upstream Client needs to place one call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	APIKey      string
	BaseURL     string
}

// Result is the successful outcome of a query; a nil *Result from
// Client.Query signals a best-effort failure per spec.md §4.1 — the caller must
// never treat a failed upstream call as a hard error.
type Result struct {
	Content          string
	ReasoningDetails string
}

// Provider abstracts one upstream chat-completions-shaped API.
type Provider interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// ModelInfo is one entry from a provider's model catalog.
type ModelInfo struct {
	ID       string
	Name     string
	Provider string
}

// CatalogProvider is implemented by providers that can list their models.
type CatalogProvider interface {
	ListModels(ctx context.Context, apiKey, baseURL string) ([]ModelInfo, error)
}
