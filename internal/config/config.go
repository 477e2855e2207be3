package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"inmovc/internal/logger"
)

// OCR engines selectable through OCR_ENGINE.
const (
	OCREngineTesseract  = "tesseract"
	OCREngineVision     = "vision"
	OCREngineDocumentAI = "documentai"
)

// Upload backends selectable through UPLOAD_BACKEND.
const (
	UploadBackendLocal = "local"
	UploadBackendGCS   = "gcs"
)

type Config struct {
	// LLM providers
	LLMProvider   string
	LLMTimeout    time.Duration
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Vertex AI, enabled when VertexProject is set
	VertexProject  string
	VertexLocation string
	VertexModel    string

	// Extraction
	OCREngine      string
	TesseractCmd   string
	OCRLanguage    string
	OCRDPI         int
	PdftoppmCmd    string
	PdftotextCmd   string
	MinNativeChars int

	// Google Cloud (Vision / Document AI)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// HTTP service
	ServerAddr            string
	UploadDir             string
	UploadBackend         string
	GCSUploadBucket       string
	MaxFileSizeMB         int64
	AllowedOrigins        []string
	MaxConcurrentAnalyses int64
	RateLimitEvery        time.Duration
	RateLimitBurst        int
	TrustProxyHeaders     bool

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", getEnv("LLM_MODEL", "gpt-4")),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-pro"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1"),

		VertexProject:  getEnv("VERTEX_PROJECT", ""),
		VertexLocation: getEnv("VERTEX_LOCATION", "us-central1"),
		VertexModel:    getEnv("VERTEX_MODEL", "gemini-1.5-pro"),

		OCREngine:      strings.ToLower(getEnv("OCR_ENGINE", OCREngineTesseract)),
		TesseractCmd:   getEnv("TESSERACT_CMD", "/usr/bin/tesseract"),
		OCRLanguage:    getEnv("OCR_LANGUAGE", "por+eng"),
		OCRDPI:         getEnvAsInt("OCR_DPI", 300),
		PdftoppmCmd:    getEnv("PDFTOPPM_CMD", "pdftoppm"),
		PdftotextCmd:   getEnv("PDFTOTEXT_CMD", "pdftotext"),
		MinNativeChars: getEnvAsInt("MIN_NATIVE_CHARS", 50),

		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),

		ServerAddr:            getEnv("SERVER_ADDR", ":8000"),
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
		UploadBackend:         strings.ToLower(getEnv("UPLOAD_BACKEND", UploadBackendLocal)),
		GCSUploadBucket:       getEnv("GCS_UPLOAD_BUCKET", ""),
		MaxFileSizeMB:         int64(getEnvAsInt("MAX_FILE_SIZE_MB", 50)),
		AllowedOrigins:        getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		MaxConcurrentAnalyses: int64(getEnvAsInt("MAX_CONCURRENT_ANALYSES", 4)),
		RateLimitEvery:        getEnvAsDuration("RATE_LIMIT_EVERY", 600*time.Millisecond),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
		TrustProxyHeaders:     getEnvAsBool("TRUST_PROXY_HEADERS", false),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks structural settings only. Missing LLM credentials are
// reported by the analyzer when an analysis is requested.
func (c *Config) validate() error {
	switch c.OCREngine {
	case OCREngineTesseract:
	case OCREngineVision:
	case OCREngineDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for OCR_ENGINE=%s", c.OCREngine)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for OCR_ENGINE=%s", c.OCREngine)
		}
	default:
		return fmt.Errorf("unsupported OCR_ENGINE %q", c.OCREngine)
	}

	switch c.UploadBackend {
	case UploadBackendLocal:
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required")
		}
	case UploadBackendGCS:
		if c.GCSUploadBucket == "" {
			return fmt.Errorf("GCS_UPLOAD_BUCKET is required for UPLOAD_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.UploadBackend)
	}

	if c.LLMProvider != "openai" && c.LLMProvider != "gemini" && c.LLMProvider != "vertex" {
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.OCRDPI <= 0 {
		return fmt.Errorf("OCR_DPI must be positive")
	}
	if c.MinNativeChars < 0 {
		return fmt.Errorf("MIN_NATIVE_CHARS must not be negative")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	if c.MaxConcurrentAnalyses <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_ANALYSES must be positive")
	}
	if c.RateLimitEvery <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_EVERY and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB << 20
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
