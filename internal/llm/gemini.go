package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"inmovc/internal/logger"
)

// DefaultGeminiBaseURL is the Generative Language v1 API root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"

// GeminiConfig configures the Generative Language REST provider.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiProvider calls models/{model}:generateContent with an API key.
type GeminiProvider struct {
	client *http.Client
	config GeminiConfig
	log    zerolog.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func NewGeminiProvider(config GeminiConfig) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, newProviderError("gemini", "NewGeminiProvider", ErrMissingAPIKey, 0)
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultGeminiBaseURL
	}
	if config.Model == "" {
		config.Model = "gemini-pro"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &GeminiProvider{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
		log:    logger.WithComponent("llm-gemini"),
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Generate implements Provider. The v1 API has no system role, so the
// system prompt is prepended to the user message.
func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	const op = "Generate"

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: systemPrompt + "\n\n" + userMessage}}},
		},
	}

	raw, status, err := SendJSON(ctx, p.client, p.endpoint(), body, nil, p.log)
	if err != nil {
		return nil, newProviderError(p.Name(), op, err, status)
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, newProviderError(p.Name(), op, fmt.Errorf("decode response: %w", err), status)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, newProviderError(p.Name(), op, ErrEmptyCompletion, status)
	}

	obj, err := decodeObject(resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, newProviderError(p.Name(), op, err, status)
	}
	return obj, nil
}

func (p *GeminiProvider) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.config.BaseURL, "/"), p.config.Model, url.QueryEscape(p.config.APIKey))
}
