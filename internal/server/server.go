// Package server exposes the extraction and analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"inmovc/internal/analysis"
	"inmovc/internal/extraction"
	"inmovc/internal/logger"
	"inmovc/internal/store"
	"inmovc/internal/uploads"
	"inmovc/pkg/models"
)

// Version is reported by the root and health endpoints.
const Version = "1.0.0"

// Extractor produces text from a PDF.
type Extractor interface {
	Extract(ctx context.Context, doc extraction.Document) (*extraction.Result, error)
}

// Analyzer produces marketing copy from extracted text.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*models.AnalysisResult, error)
}

// Options tunes the HTTP guards.
type Options struct {
	MaxFileSize           int64
	AllowedOrigins        []string
	MaxConcurrentAnalyses int64
	RateLimitEvery        time.Duration
	RateLimitBurst        int
	LimiterCleanup        time.Duration

	// TrustProxyHeaders keys rate limits on X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 50 << 20
	}
	if o.MaxConcurrentAnalyses <= 0 {
		o.MaxConcurrentAnalyses = 4
	}
	if o.RateLimitEvery <= 0 {
		o.RateLimitEvery = 600 * time.Millisecond
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 20
	}
	if o.LimiterCleanup <= 0 {
		o.LimiterCleanup = 5 * time.Minute
	}
	return o
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	extractor Extractor
	analyzer  Analyzer
	store     store.Store
	uploads   uploads.Storage
	opts      Options

	analysisSem *semaphore.Weighted
	limiters    sync.Map
	now         func() time.Time
	log         zerolog.Logger
}

func New(extractor Extractor, analyzer Analyzer, st store.Store, up uploads.Storage, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		extractor:   extractor,
		analyzer:    analyzer,
		store:       st,
		uploads:     up,
		opts:        opts,
		analysisSem: semaphore.NewWeighted(opts.MaxConcurrentAnalyses),
		now:         time.Now,
		log:         logger.WithComponent("server"),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.withRateLimit(s.handleUpload))
	mux.HandleFunc("POST /api/analyze/{file_id}", s.withRateLimit(s.withConcurrencyLimit(s.handleAnalyze)))
	mux.HandleFunc("GET /api/results", s.handleListResults)
	mux.HandleFunc("GET /api/results/{file_id}", s.handleGetResult)
	mux.HandleFunc("DELETE /api/results/{file_id}", s.handleDeleteResult)

	// Legacy endpoints
	mux.HandleFunc("POST /process-pdf", s.withRateLimit(s.withConcurrencyLimit(s.handleProcessPDF)))
	mux.HandleFunc("GET /health", s.handleLegacyHealth)

	return s.withLogging(s.withRecovery(s.withCORS(mux)))
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go s.cleanupLimiters(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", addr).
			Int64("max_concurrent_analyses", s.opts.MaxConcurrentAnalyses).
			Int64("max_file_size", s.opts.MaxFileSize).
			Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(s.opts.LimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiters.Clear()
		}
	}
}
