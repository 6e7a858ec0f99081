package upstream

import (
	"context"
	"net/http"
	"strings"

	"council/internal/councilerr"
	"council/internal/observability"
)

// Client is the Upstream Client (C1): it resolves a personality's
// "provider/model" identifier to a concrete Provider, applies the retry
// policy, and bounds total in-flight calls with a process-wide semaphore.
// Query is best-effort per spec.md §4.1: callers get a nil *Result instead
// of a propagated error. ListModels returns its fetch error to the caller.
type Client struct {
	providers map[string]Provider
	sem       chan struct{}
	retry     RetryPolicy
	catalog   *Catalog
}

// NewClient builds a Client with the three SDK-backed providers registered
// under their namespace prefixes, matching the personality model id format
// "provider/model-name" (e.g. "openai/gpt-4o", "anthropic/claude-3-7-sonnet",
// "google/gemini-2.5-pro"). httpClient should already be otelhttp-wrapped
// (see internal/observability.NewHTTPClient).
func NewClient(httpClient *http.Client, maxConcurrent int, maxRetries int, catalog *Catalog) *Client {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	openaiProvider := &OpenAIProvider{HTTPClient: httpClient}
	return &Client{
		providers: map[string]Provider{
			"openai":    openaiProvider,
			"anthropic": &AnthropicProvider{HTTPClient: httpClient},
			"google":    &GoogleProvider{HTTPClient: httpClient},
			"gemini":    &GoogleProvider{HTTPClient: httpClient},
			"local":     openaiProvider,
		},
		sem:     make(chan struct{}, maxConcurrent),
		retry:   DefaultRetryPolicy(maxRetries),
		catalog: catalog,
	}
}

func splitModel(qualified string) (provider, model string) {
	if i := strings.Index(qualified, "/"); i >= 0 {
		return strings.ToLower(qualified[:i]), qualified[i+1:]
	}
	return "openai", qualified
}

// Query is the Upstream Client contract: query(model, messages, api_key,
// base_url, opts) -> (*Result | nil). It never returns an error; callers
// treat a nil result as "this personality produced nothing this stage."
func (c *Client) Query(ctx context.Context, req Request) *Result {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil
	}

	providerName, model := splitModel(req.Model)
	provider, ok := c.providers[providerName]
	if !ok {
		observability.LoggerWithTrace(ctx).Error().Str("provider", providerName).Msg("unknown upstream provider")
		return nil
	}
	callReq := req
	callReq.Model = model

	res, err := callWithRetry(ctx, c.retry, req.Model, func(ctx context.Context) (Result, error) {
		return provider.Chat(ctx, callReq)
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Error().
			Str("model", req.Model).
			Err(err).
			Bool("permanent", errorsIsPermanent(err)).
			Msg("upstream query exhausted retries")
		return nil
	}
	return &res
}

func errorsIsPermanent(err error) bool {
	return !IsRetryable(err) && err != councilerr.ErrUpstreamTransient
}

// ListModels proxies to the provider's catalog, going through the shared
// cache keyed by base_url (§4.1).
func (c *Client) ListModels(ctx context.Context, providerName, apiKey, baseURL string) ([]ModelInfo, error) {
	cp, ok := c.providers[providerName].(CatalogProvider)
	if !ok {
		return nil, nil
	}
	return c.catalog.List(ctx, baseURL, func(ctx context.Context) ([]ModelInfo, error) {
		return cp.ListModels(ctx, apiKey, baseURL)
	})
}
