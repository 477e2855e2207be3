package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"inmovc/internal/analysis"
	"inmovc/internal/config"
	"inmovc/internal/extraction"
	"inmovc/internal/llm"
	"inmovc/internal/uploads"
)

// closer collects cleanup functions for clients created by the builders.
type closer []func() error

func (c *closer) add(fn func() error) { *c = append(*c, fn) }

func (c closer) Close(log zerolog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to close client")
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildPipeline wires native extraction with the OCR engine chosen by OCR_ENGINE.
func buildPipeline(ctx context.Context, cfg *config.Config, closers *closer, log zerolog.Logger) (*extraction.Pipeline, error) {
	runner := extraction.ExecRunner{}
	native := extraction.NewPopplerTextExtractor(runner, cfg.PdftotextCmd)

	var ocr extraction.PageOCR
	switch cfg.OCREngine {
	case config.OCREngineVision:
		visionOCR, err := extraction.NewVisionOCR(ctx)
		if err != nil {
			return nil, err
		}
		closers.add(visionOCR.Close)
		ocr = visionOCR
	case config.OCREngineDocumentAI:
		docOCR, err := extraction.NewDocumentAIOCR(ctx, extraction.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
		if err != nil {
			return nil, err
		}
		closers.add(docOCR.Close)
		ocr = docOCR
	default:
		ocr = extraction.NewOCRFallbackExtractor(
			extraction.NewPopplerRasterizer(runner, cfg.PdftoppmCmd, cfg.OCRDPI),
			extraction.NewTesseractRecognizer(runner, cfg.TesseractCmd, cfg.OCRLanguage),
		)
	}

	log.Debug().
		Str("ocr_engine", cfg.OCREngine).
		Int("min_native_chars", cfg.MinNativeChars).
		Msg("Extraction pipeline configured")

	return extraction.NewPipeline(native, ocr, extraction.WithMinNativeChars(cfg.MinNativeChars)), nil
}

// buildAnalyzer creates every provider that has credentials, with
// LLM_PROVIDER first. An analyzer without providers reports ErrNoProviders
// when used.
func buildAnalyzer(ctx context.Context, cfg *config.Config, closers *closer, log zerolog.Logger) *analysis.Analyzer {
	var providers []llm.Provider

	if cfg.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			log.Warn().Err(err).Msg("OpenAI provider disabled")
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.GeminiAPIKey != "" {
		p, err := llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Gemini provider disabled")
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.VertexProject != "" {
		p, err := llm.NewVertexProvider(ctx, llm.VertexConfig{
			ProjectID: cfg.VertexProject,
			Location:  cfg.VertexLocation,
			Model:     cfg.VertexModel,
			Timeout:   cfg.LLMTimeout,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Vertex AI provider disabled")
		} else {
			closers.add(p.Close)
			providers = append(providers, p)
		}
	}

	analyzer := analysis.NewAnalyzer(analysis.Prioritize(providers, cfg.LLMProvider)...)
	if len(providers) == 0 {
		log.Warn().Msg("No LLM provider configured; set OPENAI_API_KEY, GEMINI_API_KEY or VERTEX_PROJECT")
	} else {
		log.Info().Strs("providers", analyzer.Providers()).Msg("LLM providers configured")
	}
	return analyzer
}

func buildUploads(ctx context.Context, cfg *config.Config, closers *closer) (uploads.Storage, error) {
	switch cfg.UploadBackend {
	case config.UploadBackendGCS:
		gcs, err := uploads.NewGCSStorage(ctx, cfg.GCSUploadBucket)
		if err != nil {
			return nil, err
		}
		closers.add(gcs.Close)
		return gcs, nil
	case config.UploadBackendLocal:
		return uploads.NewLocalStorage(cfg.UploadDir)
	default:
		return nil, errors.New("unsupported upload backend: " + cfg.UploadBackend)
	}
}
