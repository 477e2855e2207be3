// Package extraction turns PDF listings into plain text.
//
// Text is read from the document's embedded text layer first. When that yields
// too little text (scanned brochures, image-only flyers) the document is handed
// to an OCR engine and the recognized pages are joined with a delimiter line.
//
// OCR engines:
//   - OCRFallbackExtractor: pdftoppm rasterization + tesseract, run locally
//   - VisionOCR: Google Cloud Vision document text detection
//   - DocumentAIOCR: Google Document AI OCR processor
//
// Required binaries for the local engines:
//   - pdftotext, pdftoppm (poppler-utils)
//   - tesseract with the configured language packs
package extraction

import (
	"context"
	"time"
)

// Method identifies which tier produced the extracted text.
type Method string

const (
	MethodNativeText Method = "native_text"
	MethodOCR        Method = "ocr"
)

// Document is a raw uploaded file.
type Document struct {
	Data     []byte
	Filename string
}

// Result is the normalized output of the pipeline.
type Result struct {
	// Text is the extracted content. OCR output keeps page boundaries as
	// delimiter lines.
	Text string `json:"text"`

	// Method is the tier that produced Text.
	Method Method `json:"method"`

	// CharacterCount is the number of characters (runes) in Text.
	CharacterCount int `json:"character_count"`

	// PageCount is the number of pages the producing tier returned.
	PageCount int `json:"page_count"`

	// ProcessingDuration is how long the extraction took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// TextExtractor reads the embedded text layer of a PDF, one string per page.
type TextExtractor interface {
	ExtractPages(ctx context.Context, pdf []byte) ([]string, error)
}

// PageOCR recognizes every page of a PDF, one string per page in page order.
// A page that could not be recognized is returned as "".
type PageOCR interface {
	RecognizePages(ctx context.Context, pdf []byte) ([]string, error)
}
