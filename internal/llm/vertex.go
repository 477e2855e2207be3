package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/rs/zerolog"
	"inmovc/internal/gcp"
	"inmovc/internal/logger"
)

// VertexConfig configures Gemini on Vertex AI.
type VertexConfig struct {
	ProjectID string
	Location  string
	Model     string
	Timeout   time.Duration
}

// VertexProvider calls Gemini through the Vertex AI SDK with JSON output forced.
type VertexProvider struct {
	client *genai.Client
	config VertexConfig
	log    zerolog.Logger
}

func NewVertexProvider(ctx context.Context, config VertexConfig) (*VertexProvider, error) {
	const op = "NewVertexProvider"

	if config.ProjectID == "" {
		return nil, newProviderError("vertex", op, errors.New("project ID not configured"), 0)
	}
	if config.Location == "" {
		config.Location = "us-central1"
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-pro"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	client, err := genai.NewClient(ctx, config.ProjectID, config.Location, gcp.ClientOptions()...)
	if err != nil {
		return nil, newProviderError("vertex", op, fmt.Errorf("genai.NewClient: %w", err), 0)
	}

	return &VertexProvider{
		client: client,
		config: config,
		log:    logger.WithComponent("llm-vertex"),
	}, nil
}

func (p *VertexProvider) Name() string { return "vertex" }

// Generate implements Provider.
func (p *VertexProvider) Generate(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	const op = "Generate"

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.config.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(DefaultTemperature),
		MaxOutputTokens:  genai.Ptr[int32](DefaultMaxTokens),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		p.log.Warn().Err(err).Str("model", p.config.Model).Msg("GenerateContent failed")
		return nil, newProviderError(p.Name(), op, err, 0)
	}

	obj, err := decodeObject(candidateText(resp))
	if err != nil {
		return nil, newProviderError(p.Name(), op, err, 0)
	}
	return obj, nil
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// Close releases the Vertex AI client.
func (p *VertexProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
