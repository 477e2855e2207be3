package extraction

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"inmovc/internal/gcp"
	"inmovc/internal/logger"
)

const (
	// MaxVisionFileSizeBytes is the inline content limit for synchronous requests (20MB)
	MaxVisionFileSizeBytes = 20 * 1024 * 1024

	// MaxVisionPagesPerRequest is the page limit for one synchronous file request
	MaxVisionPagesPerRequest = 5
)

// VisionOCR implements PageOCR using Google Cloud Vision document text detection.
type VisionOCR struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionOCR creates a Vision client with credentials from environment.
// It expects either GOOGLE_CREDENTIALS JSON or a GOOGLE_APPLICATION_CREDENTIALS path.
func NewVisionOCR(ctx context.Context) (*VisionOCR, error) {
	const op = "NewVisionOCR"

	client, err := vision.NewImageAnnotatorClient(ctx, gcp.ClientOptions()...)
	if err != nil {
		if !gcp.HasCredentials() {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, "failed to create Vision client")
	}

	return NewVisionOCRWithClient(client), nil
}

// NewVisionOCRWithClient wraps an existing client.
func NewVisionOCRWithClient(client *vision.ImageAnnotatorClient) *VisionOCR {
	return &VisionOCR{
		client: client,
		log:    logger.WithComponent("vision-ocr"),
	}
}

// RecognizePages sends the PDF inline, five pages per request.
func (g *VisionOCR) RecognizePages(ctx context.Context, pdf []byte) ([]string, error) {
	const op = "RecognizePages"

	if len(pdf) > MaxVisionFileSizeBytes {
		return nil, NewExtractionError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdf)))
	}
	if !HasPDFHeader(pdf) {
		return nil, NewExtractionError(op, ErrInvalidPDF, "missing PDF header")
	}

	total, err := PageCount(pdf)
	if err != nil {
		// Without a page count only the first batch can be requested.
		g.log.Warn().Err(err).Msg("Could not count pages, requesting first batch only")
		return g.annotate(ctx, pdf, nil)
	}

	var texts []string
	for _, batch := range pageBatches(total, MaxVisionPagesPerRequest) {
		pageTexts, err := g.annotate(ctx, pdf, batch)
		if err != nil {
			return nil, err
		}
		texts = append(texts, pageTexts...)
	}
	return texts, nil
}

func (g *VisionOCR) annotate(ctx context.Context, pdf []byte, pages []int32) ([]string, error) {
	const op = "annotate"

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdf,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				Pages: pages,
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, NewExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewExtractionError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, NewExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	return visionPageTexts(fileResp, g.log), nil
}

// visionPageTexts maps each page response to its text. Failed pages are "".
func visionPageTexts(fileResp *visionpb.AnnotateFileResponse, log zerolog.Logger) []string {
	texts := make([]string, len(fileResp.Responses))
	for i, page := range fileResp.Responses {
		if page.Error != nil {
			log.Warn().
				Int("page", i+1).
				Str("error", page.Error.Message).
				Msg("Vision page failed, continuing with empty text")
			continue
		}
		if page.FullTextAnnotation != nil {
			texts[i] = page.FullTextAnnotation.Text
		}
	}
	return texts
}

// pageBatches splits 1..total into consecutive groups of at most size pages.
func pageBatches(total, size int) [][]int32 {
	var batches [][]int32
	for start := 1; start <= total; start += size {
		var batch []int32
		for p := start; p < start+size && p <= total; p++ {
			batch = append(batch, int32(p))
		}
		batches = append(batches, batch)
	}
	return batches
}

// Close closes the underlying Vision client.
func (g *VisionOCR) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
