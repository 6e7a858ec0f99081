package upstream

import (
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider serves any OpenAI-compatible chat-completions endpoint:
// OpenAI itself, OpenRouter, and self-hosted gateways that speak the same
// wire format. BaseURL/APIKey arrive with each Request, so a new SDK client
// is built per call rather than cached, mirroring the teacher's specialists
// registry rebuilding providers whenever a personality's config changes.
type OpenAIProvider struct {
	HTTPClient *http.Client
}

func (p *OpenAIProvider) client(apiKey, baseURL string) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if p.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(p.HTTPClient))
	}
	return openai.NewClient(opts...)
}

func (p *OpenAIProvider) Chat(ctx context.Context, req Request) (Result, error) {
	client := p.client(req.APIKey, req.BaseURL)
	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, ErrEmptyResponse
	}
	return Result{Content: resp.Choices[0].Message.Content}, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// ListModels implements CatalogProvider for OpenAI-compatible endpoints,
// per spec.md §4.1's URL-rewriting rule: OpenRouter gets /api/v1/models,
// everything else gets /chat/completions stripped and /models appended.
func (p *OpenAIProvider) ListModels(ctx context.Context, apiKey, baseURL string) ([]ModelInfo, error) {
	client := p.client(apiKey, catalogURL(baseURL))
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	out := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, ModelInfo{ID: m.ID, Name: m.ID, Provider: providerPrefix(m.ID)})
	}
	return out, nil
}

func catalogURL(baseURL string) string {
	if strings.Contains(baseURL, "openrouter.ai") {
		host := strings.TrimSuffix(baseURL, "/")
		if i := strings.Index(host, "/api/"); i >= 0 {
			host = host[:i]
		}
		return host + "/api/v1"
	}
	return strings.TrimSuffix(strings.TrimSuffix(baseURL, "/chat/completions"), "/")
}

func providerPrefix(modelID string) string {
	if i := strings.Index(modelID, "/"); i >= 0 {
		return modelID[:i]
	}
	return "unknown"
}
