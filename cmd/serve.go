package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"inmovc/internal/logger"
	"inmovc/internal/server"
	"inmovc/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the InmoVC HTTP API",
	Long: `Start the HTTP API used by the InmoVC dashboard.

Endpoints:
  GET    /                        API information
  GET    /api/health              health check
  POST   /api/upload              upload a PDF (multipart field "file")
  POST   /api/analyze/{file_id}   extract and analyze an uploaded PDF
  GET    /api/results             list all results
  GET    /api/results/{file_id}   get one result
  DELETE /api/results/{file_id}   delete a result and its file
  POST   /process-pdf             extract text only (legacy)
  GET    /health                  health check (legacy)

Results are kept in memory and are lost on restart.`,
	Example: `  # Listen on the default address (:8000)
  inmovc serve

  # Listen on another port
  inmovc serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: SERVER_ADDR or :8000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.ServerAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers closer
	defer closers.Close(log)

	pipeline, err := buildPipeline(ctx, cfg, &closers, log)
	if err != nil {
		return handleExtractionError(err, log)
	}
	analyzer := buildAnalyzer(ctx, cfg, &closers, log)

	uploadStorage, err := buildUploads(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	srv := server.New(pipeline, analyzer, store.NewMemoryStore(), uploadStorage, server.Options{
		MaxFileSize:           cfg.MaxFileSizeBytes(),
		AllowedOrigins:        cfg.AllowedOrigins,
		MaxConcurrentAnalyses: cfg.MaxConcurrentAnalyses,
		RateLimitEvery:        cfg.RateLimitEvery,
		RateLimitBurst:        cfg.RateLimitBurst,
		TrustProxyHeaders:     cfg.TrustProxyHeaders,
	})

	log.Info().
		Str("addr", addr).
		Str("ocr_engine", cfg.OCREngine).
		Str("upload_backend", cfg.UploadBackend).
		Msg("Starting InmoVC API")

	return srv.ListenAndServe(ctx, addr)
}
