// Package analysis turns extracted listing text into structured marketing
// copy by asking LLM providers in priority order and returning the first
// reply that satisfies the result contract.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"inmovc/internal/llm"
	"inmovc/internal/logger"
	"inmovc/pkg/models"
)

// Request is the input to one analysis.
type Request struct {
	ExtractedText string
	Filename      string
}

// Analyzer runs the provider failover loop.
type Analyzer struct {
	providers []llm.Provider
	log       zerolog.Logger
}

// NewAnalyzer returns an analyzer that tries providers in the given order.
func NewAnalyzer(providers ...llm.Provider) *Analyzer {
	return &Analyzer{
		providers: providers,
		log:       logger.WithComponent("analyzer"),
	}
}

// Providers returns the provider names in priority order.
func (a *Analyzer) Providers() []string {
	names := make([]string, len(a.providers))
	for i, p := range a.providers {
		names[i] = p.Name()
	}
	return names
}

// Analyze returns the first structurally valid result. Providers are called
// strictly one after another; a failure moves on to the next provider.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	const op = "Analyze"

	if strings.TrimSpace(req.ExtractedText) == "" {
		return nil, &ValidationError{Field: "extracted_text", Message: "must not be empty"}
	}
	if len(a.providers) == 0 {
		return nil, NewAnalysisError(op, ErrNoProviders, "set OPENAI_API_KEY, GEMINI_API_KEY or VERTEX_PROJECT")
	}

	userMessage := BuildUserMessage(req.ExtractedText)
	attempts := make([]ProviderAttempt, 0, len(a.providers))

	for _, provider := range a.providers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, ProviderAttempt{Provider: provider.Name(), Reason: err.Error()})
			break
		}

		start := time.Now()
		result, attempt := a.try(ctx, provider, userMessage)
		attempts = append(attempts, attempt)

		if attempt.Success {
			a.log.Info().
				Str("provider", provider.Name()).
				Str("filename", req.Filename).
				Int("attempt", len(attempts)).
				Dur("duration", time.Since(start)).
				Msg("Analysis completed")
			return result, nil
		}

		a.log.Warn().
			Str("provider", provider.Name()).
			Str("reason", attempt.Reason).
			Dur("duration", time.Since(start)).
			Msg("Provider failed, trying next")
	}

	return nil, &LLMFailureError{Attempts: attempts}
}

func (a *Analyzer) try(ctx context.Context, provider llm.Provider, userMessage string) (*models.AnalysisResult, ProviderAttempt) {
	attempt := ProviderAttempt{Provider: provider.Name()}

	raw, err := provider.Generate(ctx, SystemPrompt, userMessage)
	if err != nil {
		attempt.Reason = err.Error()
		return nil, attempt
	}
	attempt.Raw = string(raw)

	if err := ValidateResult(raw); err != nil {
		attempt.Reason = err.Error()
		return nil, attempt
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		attempt.Reason = fmt.Sprintf("decode result: %v", err)
		return nil, attempt
	}

	attempt.Success = true
	return &result, attempt
}

// Prioritize moves the provider named primary to the front and keeps the
// relative order of the rest.
func Prioritize(providers []llm.Provider, primary string) []llm.Provider {
	ordered := make([]llm.Provider, 0, len(providers))
	for _, p := range providers {
		if p.Name() == primary {
			ordered = append(ordered, p)
		}
	}
	for _, p := range providers {
		if p.Name() != primary {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
