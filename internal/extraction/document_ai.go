package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"inmovc/internal/gcp"
	"inmovc/internal/logger"
)

// DocumentAIConfig holds configuration for the Document AI OCR processor.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location ("us", "eu").
	Location string

	// ProcessorID is the OCR processor ID.
	ProcessorID string

	// ProcessorVersion pins a processor version. Empty uses the default.
	ProcessorVersion string

	// Timeout bounds one ProcessDocument call. Default: 60 seconds.
	Timeout time.Duration
}

// DocumentAIOCR implements PageOCR using a Document AI OCR processor.
type DocumentAIOCR struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

func NewDocumentAIOCR(ctx context.Context, config DocumentAIConfig) (*DocumentAIOCR, error) {
	const op = "NewDocumentAIOCR"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, NewExtractionError(op, ErrOCRUnavailable, "project and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	clientOptions := gcp.ClientOptions()
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIOCR{
		client: client,
		config: config,
		log:    logger.WithComponent("documentai-ocr"),
	}, nil
}

// RecognizePages implements PageOCR.
func (p *DocumentAIOCR) RecognizePages(ctx context.Context, pdf []byte) ([]string, error) {
	const op = "RecognizePages"

	if !HasPDFHeader(pdf) {
		return nil, NewExtractionError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdf,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, NewExtractionError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
	if resp.Document == nil {
		return nil, NewExtractionError(op, ErrOCRFailed, "no document in response")
	}

	texts := documentPageTexts(resp.Document)
	p.log.Debug().Int("pages", len(texts)).Msg("Document AI OCR completed")
	return texts, nil
}

func (p *DocumentAIOCR) processorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
	if p.config.ProcessorVersion != "" {
		name += "/processorVersions/" + p.config.ProcessorVersion
	}
	return name
}

// documentPageTexts resolves each page's layout text anchor against the
// document text. Anchor indices count characters, not bytes.
func documentPageTexts(doc *documentaipb.Document) []string {
	text := []rune(doc.GetText())
	texts := make([]string, len(doc.GetPages()))

	for i, page := range doc.GetPages() {
		anchor := page.GetLayout().GetTextAnchor()
		if anchor == nil {
			continue
		}
		var b strings.Builder
		for _, seg := range anchor.GetTextSegments() {
			start, end := seg.GetStartIndex(), seg.GetEndIndex()
			if start < 0 {
				start = 0
			}
			if end > int64(len(text)) {
				end = int64(len(text))
			}
			if start >= end {
				continue
			}
			b.WriteString(string(text[start:end]))
		}
		texts[i] = b.String()
	}
	return texts
}

// Close closes the underlying Document AI client.
func (p *DocumentAIOCR) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
