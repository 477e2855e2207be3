package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"inmovc/internal/extraction"
	"inmovc/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract text from a PDF, falling back to OCR for scanned pages",
	Long: `Extract the text of a real-estate PDF.

The native text layer is read first with pdftotext. When it yields 50
characters or fewer the document is treated as scanned and every page
is run through OCR instead; OCR pages are separated by "---" lines.

The OCR engine is chosen with OCR_ENGINE:
  tesseract  - local pdftoppm + tesseract (default)
  vision     - Google Cloud Vision (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS)
  documentai - Google Document AI (GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID)`,
	Example: `  # Print the text of a brochure
  inmovc extract brochure.pdf

  # Save the text and extraction details as JSON
  inmovc extract scanned-flyer.pdf --json -o result.json

  # Allow more time for long scanned documents
  inmovc extract catalogue.pdf --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON shape written with --json.
type ExtractOutput struct {
	Text               string    `json:"text"`
	Method             string    `json:"method"`
	CharacterCount     int       `json:"character_count"`
	PageCount          int       `json:"page_count"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON with extraction details")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting extraction")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fileInfo, data, err := readPDFFile(pdfPath, cfg.MaxFileSizeBytes(), log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	var closers closer
	defer closers.Close(log)

	pipeline, err := buildPipeline(ctx, cfg, &closers, log)
	if err != nil {
		return handleExtractionError(err, log)
	}

	result, err := pipeline.Extract(ctx, extraction.Document{Data: data, Filename: filepath.Base(pdfPath)})
	if err != nil {
		return handleExtractionError(err, log)
	}

	log.Info().
		Str("method", string(result.Method)).
		Int("characters", result.CharacterCount).
		Int("pages", result.PageCount).
		Dur("duration", result.ProcessingDuration).
		Msg("Extraction completed successfully")

	var out []byte
	if jsonOutput {
		out, err = json.MarshalIndent(ExtractOutput{
			Text:               result.Text,
			Method:             string(result.Method),
			CharacterCount:     result.CharacterCount,
			PageCount:          result.PageCount,
			ProcessedAt:        time.Now(),
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		out = []byte(result.Text)
	}

	return writeOutput(out, outputPath, log)
}

// readPDFFile checks that the file exists, is a regular non-empty file
// within the size limit, and returns its contents.
func readPDFFile(pdfPath string, maxSize int64, log zerolog.Logger) (os.FileInfo, []byte, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", pdfPath).Msg("PDF file not found")
			return nil, nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", pdfPath).Msg("Permission denied accessing PDF file")
			return nil, nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}
	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().Str("file", pdfPath).Msg("File does not have .pdf extension")
	}
	if fileInfo.Size() == 0 {
		return nil, nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}
	if fileInfo.Size() > maxSize {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", maxSize).
			Msg("PDF file exceeds maximum size limit")
		return nil, nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (set MAX_FILE_SIZE_MB)",
			fileInfo.Size(), maxSize)
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PDF file: %w", err)
	}
	return fileInfo, data, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleExtractionError provides user-friendly error messages for extraction failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, extraction.ErrOCRUnavailable):
		return fmt.Errorf("the PDF has no usable text layer and OCR is not available.\n\n" +
			"Install poppler-utils and tesseract-ocr (with the por language pack), or set\n" +
			"OCR_ENGINE=vision or OCR_ENGINE=documentai to use Google Cloud OCR")
	case errors.Is(err, extraction.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n" +
			"2. GOOGLE_CREDENTIALS with the inline service account JSON\n" +
			"3. Application Default Credentials via: gcloud auth application-default login")
	case errors.Is(err, extraction.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large for the selected OCR engine. Try compressing or splitting the file")
	case errors.Is(err, extraction.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, extraction.ErrNoText):
		return fmt.Errorf("no text could be extracted. The PDF may contain only photos or be corrupted")
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure the service account can use the selected Google Cloud OCR API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("Google Cloud quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, extraction.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues or service unavailability: %w", err)
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}
