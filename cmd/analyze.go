package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"inmovc/internal/analysis"
	"inmovc/internal/extraction"
	"inmovc/internal/logger"
	"inmovc/internal/sheets"
	"inmovc/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [pdf-file]",
	Short: "Generate marketing copy for a real-estate PDF",
	Long: `Extract the text of a real-estate PDF and ask an LLM to write listing copy.

The result is a JSON object with announcementTitle, longDescriptionPt,
longDescriptionEn, instagramPost, keyFeatures, targetAudience and
callToAction.

Providers are used in this order, skipping any without credentials:
  LLM_PROVIDER (default openai) first, then openai, gemini, vertex.

Required environment variables (at least one):
  OPENAI_API_KEY  - OpenAI chat completions
  GEMINI_API_KEY  - Google Generative Language API
  VERTEX_PROJECT  - Gemini on Vertex AI (uses Google Cloud credentials)`,
	Example: `  # Print the listing copy as JSON
  inmovc analyze apartamento-t3.pdf

  # Save it to a file
  inmovc analyze moradia.pdf -o moradia.json

  # Include the extracted text and extraction details
  inmovc analyze moradia.pdf --text

  # Also append the listing to a Google Sheet
  inmovc analyze moradia.pdf --sheet "https://docs.google.com/spreadsheets/d/ID/edit"`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// AnalyzeOutput is the JSON shape written by analyze.
type AnalyzeOutput struct {
	Analysis   *models.AnalysisResult `json:"analysis"`
	Extraction AnalyzeExtraction      `json:"extraction"`
	Metadata   AnalyzeMetadata        `json:"metadata"`
}

type AnalyzeExtraction struct {
	Method         string `json:"method"`
	CharacterCount int    `json:"character_count"`
	PageCount      int    `json:"page_count"`
	Text           string `json:"text,omitempty"`
}

type AnalyzeMetadata struct {
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size_bytes"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	Providers          []string  `json:"providers"`
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().Bool("text", false, "Include the extracted text in the output")
	analyzeCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	analyzeCmd.Flags().String("sheet", "", "Google Sheets URL to append the listing to")
	analyzeCmd.Flags().String("sheet-name", sheets.DefaultSheetName, "Sheet tab to append to")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	outputPath, _ := cmd.Flags().GetString("output")
	includeText, _ := cmd.Flags().GetBool("text")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	sheetName, _ := cmd.Flags().GetString("sheet-name")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Int("timeout", timeoutSecs).
		Msg("Starting analysis")

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
	analyzer := buildAnalyzer(ctx, cfg, &closers, log)

	start := time.Now()
	filename := filepath.Base(pdfPath)

	extracted, err := pipeline.Extract(ctx, extraction.Document{Data: data, Filename: filename})
	if err != nil {
		return handleExtractionError(err, log)
	}

	result, err := analyzer.Analyze(ctx, analysis.Request{ExtractedText: extracted.Text, Filename: filename})
	if err != nil {
		return handleAnalysisError(err, log)
	}

	log.Info().
		Str("method", string(extracted.Method)).
		Int("features", len(result.KeyFeatures)).
		Dur("duration", time.Since(start)).
		Msg("Analysis completed successfully")

	output := AnalyzeOutput{
		Analysis: result,
		Extraction: AnalyzeExtraction{
			Method:         string(extracted.Method),
			CharacterCount: extracted.CharacterCount,
			PageCount:      extracted.PageCount,
		},
		Metadata: AnalyzeMetadata{
			FileName:           fileInfo.Name(),
			FileSize:           fileInfo.Size(),
			ProcessedAt:        time.Now(),
			ProcessingDuration: time.Since(start).String(),
			Providers:          analyzer.Providers(),
		},
	}
	if includeText {
		output.Extraction.Text = extracted.Text
	}

	if sheetURL != "" {
		if err := exportToSheet(ctx, sheetURL, sheetName, listingRecord(output, start)); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return writeOutput(out, outputPath, log)
}

// listingRecord shapes a CLI analysis like a stored service record.
func listingRecord(output AnalyzeOutput, uploaded time.Time) *models.Record {
	return &models.Record{
		ID:         fmt.Sprintf("%d_%s", uploaded.Unix(), output.Metadata.FileName),
		Filename:   output.Metadata.FileName,
		UploadTime: uploaded,
		Status:     models.StatusCompleted,
		PageCount:  output.Extraction.PageCount,
		Results: &models.ListingResults{
			Extraction: models.ExtractionSummary{
				Method:         output.Extraction.Method,
				CharacterCount: output.Extraction.CharacterCount,
				PageCount:      output.Extraction.PageCount,
			},
			Analysis: output.Analysis,
		},
	}
}

func exportToSheet(ctx context.Context, sheetURL, sheetName string, record *models.Record) error {
	svc, err := sheets.NewSheetsService(ctx, sheetURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Google Sheets: %w", err)
	}
	if err := svc.AppendRecords(ctx, sheetName, []*models.Record{record}); err != nil {
		return fmt.Errorf("failed to export to Google Sheets: %w", err)
	}
	return nil
}

// handleAnalysisError provides user-friendly error messages for LLM failures
func handleAnalysisError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Analysis failed")

	var validationErr *analysis.ValidationError
	var failure *analysis.LLMFailureError

	switch {
	case errors.As(err, &validationErr):
		return fmt.Errorf("nothing to analyze: %s", validationErr.Message)
	case errors.Is(err, analysis.ErrNoProviders):
		return fmt.Errorf("no LLM provider configured. Please set one of:\n\n" +
			"1. OPENAI_API_KEY for OpenAI\n" +
			"2. GEMINI_API_KEY for the Gemini API\n" +
			"3. VERTEX_PROJECT (and Google Cloud credentials) for Vertex AI")
	case errors.As(err, &failure):
		var b strings.Builder
		b.WriteString("every LLM provider failed:\n")
		for _, a := range failure.Attempts {
			fmt.Fprintf(&b, "  - %s: %s\n", a.Provider, a.Reason)
		}
		return errors.New(strings.TrimRight(b.String(), "\n"))
	default:
		return fmt.Errorf("analysis failed: %w", err)
	}
}
