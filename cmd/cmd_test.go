package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"inmovc/internal/analysis"
	"inmovc/internal/config"
	"inmovc/internal/extraction"
	"inmovc/pkg/models"
)

func TestHandleExtractionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"ocr unavailable", extraction.NewExtractionError("RecognizePages", extraction.ErrOCRUnavailable, ""), "tesseract-ocr"},
		{"no text", extraction.NewExtractionError("Extract", extraction.ErrNoText, ""), "no text could be extracted"},
		{"invalid pdf", extraction.NewExtractionError("PageCount", extraction.ErrInvalidPDF, ""), "corrupted PDF"},
		{"other", errors.New("boom"), "extraction failed: boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := handleExtractionError(tc.err, zerolog.Nop())
			if !strings.Contains(got.Error(), tc.want) {
				t.Errorf("handleExtractionError() = %q, want it to contain %q", got, tc.want)
			}
		})
	}
}

func TestHandleAnalysisError(t *testing.T) {
	failure := &analysis.LLMFailureError{Attempts: []analysis.ProviderAttempt{
		{Provider: "openai", Reason: "status 429"},
		{Provider: "gemini", Reason: "not a JSON object"},
	}}

	got := handleAnalysisError(failure, zerolog.Nop()).Error()
	for _, want := range []string{"openai: status 429", "gemini: not a JSON object"} {
		if !strings.Contains(got, want) {
			t.Errorf("message %q does not contain %q", got, want)
		}
	}

	got = handleAnalysisError(analysis.NewAnalysisError("Analyze", analysis.ErrNoProviders, ""), zerolog.Nop()).Error()
	if !strings.Contains(got, "OPENAI_API_KEY") {
		t.Errorf("no-provider message = %q", got)
	}
}

func TestReadPDFFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "casa.pdf")
	if err := os.WriteFile(good, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, data, err := readPDFFile(good, 1024, zerolog.Nop()); err != nil || string(data) != "%PDF-1.4 test" {
		t.Errorf("readPDFFile(good) = %q, %v", data, err)
	}

	tests := []struct {
		path string
		max  int64
		want string
	}{
		{filepath.Join(dir, "missing.pdf"), 1024, "not found"},
		{empty, 1024, "empty"},
		{good, 4, "too large"},
		{dir, 1024, "not a regular file"},
	}
	for _, tc := range tests {
		_, _, err := readPDFFile(tc.path, tc.max, zerolog.Nop())
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("readPDFFile(%s) error = %v, want %q", tc.path, err, tc.want)
		}
	}
}

func TestBuildAnalyzerOrder(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:  "gemini",
		OpenAIAPIKey: "sk-test",
		GeminiAPIKey: "g-test",
	}

	var closers closer
	analyzer := buildAnalyzer(context.Background(), cfg, &closers, zerolog.Nop())
	if diff := cmp.Diff([]string{"gemini", "openai"}, analyzer.Providers()); diff != "" {
		t.Errorf("provider order mismatch (-want +got):\n%s", diff)
	}

	none := buildAnalyzer(context.Background(), &config.Config{LLMProvider: "openai"}, &closers, zerolog.Nop())
	_, err := none.Analyze(context.Background(), analysis.Request{ExtractedText: "Moradia"})
	if !errors.Is(err, analysis.ErrNoProviders) {
		t.Errorf("error = %v, want ErrNoProviders", err)
	}
}

func TestBuildPipelineTesseract(t *testing.T) {
	cfg := &config.Config{
		OCREngine:      config.OCREngineTesseract,
		PdftotextCmd:   "pdftotext",
		PdftoppmCmd:    "pdftoppm",
		TesseractCmd:   "tesseract",
		OCRLanguage:    "por",
		OCRDPI:         300,
		MinNativeChars: 50,
	}

	var closers closer
	pipeline, err := buildPipeline(context.Background(), cfg, &closers, zerolog.Nop())
	if err != nil || pipeline == nil {
		t.Fatalf("buildPipeline() = %v, %v", pipeline, err)
	}
	if len(closers) != 0 {
		t.Errorf("local engine registered %d closers", len(closers))
	}
}

func TestBuildUploadsLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	cfg := &config.Config{UploadBackend: config.UploadBackendLocal, UploadDir: dir}

	var closers closer
	if _, err := buildUploads(context.Background(), cfg, &closers); err != nil {
		t.Fatalf("buildUploads() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("upload dir not created: %v", err)
	}
}

func TestListingRecord(t *testing.T) {
	uploaded := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	output := AnalyzeOutput{
		Analysis:   &models.AnalysisResult{AnnouncementTitle: "Moradia V4"},
		Extraction: AnalyzeExtraction{Method: "ocr", CharacterCount: 640, PageCount: 3},
		Metadata:   AnalyzeMetadata{FileName: "moradia.pdf"},
	}

	rec := listingRecord(output, uploaded)
	if rec.ID != "1718011800_moradia.pdf" {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.Status != models.StatusCompleted || rec.Results.Extraction.Method != "ocr" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Results.Analysis.AnnouncementTitle != "Moradia V4" {
		t.Errorf("analysis not carried over: %+v", rec.Results.Analysis)
	}
}
