package upstream

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GoogleProvider serves Gemini models through the genai SDK.
type GoogleProvider struct {
	HTTPClient *http.Client
}

func (p *GoogleProvider) client(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.HTTPClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	return genai.NewClient(ctx, cfg)
}

func (p *GoogleProvider) Chat(ctx context.Context, req Request) (Result, error) {
	client, err := p.client(ctx, req.APIKey, req.BaseURL)
	if err != nil {
		return Result{}, classifyNetwork(err)
	}

	var system string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch strings.ToLower(m.Role) {
		case "system":
			system = joinSystem(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	genCfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(req.Temperature))}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		return Result{}, classifyNetwork(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyResponse
	}
	return Result{Content: text}, nil
}
