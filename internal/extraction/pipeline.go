package extraction

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"inmovc/internal/logger"
)

const (
	// MinNativeChars is the trimmed native-text length that must be exceeded
	// for OCR to be skipped.
	MinNativeChars = 50

	// Delimiter is the line written after every OCR page.
	Delimiter = "---"
)

// Pipeline runs native extraction and falls back to OCR when the text layer
// is too thin.
type Pipeline struct {
	native         TextExtractor
	ocr            PageOCR
	minNativeChars int
	delimiter      string
	log            zerolog.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithMinNativeChars overrides MinNativeChars.
func WithMinNativeChars(n int) PipelineOption {
	return func(p *Pipeline) { p.minNativeChars = n }
}

// WithDelimiter overrides Delimiter.
func WithDelimiter(d string) PipelineOption {
	return func(p *Pipeline) { p.delimiter = d }
}

func NewPipeline(native TextExtractor, ocr PageOCR, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		native:         native,
		ocr:            ocr,
		minNativeChars: MinNativeChars,
		delimiter:      Delimiter,
		log:            logger.WithComponent("extraction"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract returns the document text and the tier that produced it.
func (p *Pipeline) Extract(ctx context.Context, doc Document) (*Result, error) {
	const op = "Extract"
	start := time.Now()

	if len(doc.Data) == 0 {
		return nil, NewExtractionError(op, ErrEmptyDocument, doc.Filename)
	}
	if !HasPDFHeader(doc.Data) {
		return nil, NewExtractionError(op, ErrInvalidPDF, "missing PDF header")
	}

	log := p.log.With().Str("file", doc.Filename).Int("size", len(doc.Data)).Logger()

	nativePages := p.nativePages(ctx, doc, log)
	native := strings.TrimSpace(strings.Join(nativePages, ""))
	if utf8.RuneCountInString(native) > p.minNativeChars {
		log.Info().
			Int("characters", utf8.RuneCountInString(native)).
			Msg("Native text extraction succeeded")
		return newResult(native, MethodNativeText, len(nativePages), start), nil
	}

	log.Info().
		Int("characters", utf8.RuneCountInString(native)).
		Int("threshold", p.minNativeChars).
		Msg("Native text below threshold, falling back to OCR")

	if p.ocr == nil {
		return nil, NewExtractionError(op, ErrOCRUnavailable, "no OCR engine configured")
	}
	pages, err := p.ocr.RecognizePages(ctx, doc.Data)
	if err != nil {
		return nil, WrapExtractionError(op, err, "OCR fallback failed")
	}

	// Delimiter lines alone do not count as text.
	if strings.TrimSpace(strings.Join(pages, "")) == "" {
		return nil, NewExtractionError(op, ErrNoText, doc.Filename)
	}
	text := p.joinPages(pages)

	log.Info().
		Int("pages", len(pages)).
		Int("characters", utf8.RuneCountInString(text)).
		Msg("OCR extraction succeeded")
	return newResult(text, MethodOCR, len(pages), start), nil
}

func (p *Pipeline) nativePages(ctx context.Context, doc Document, log zerolog.Logger) []string {
	if p.native == nil {
		return nil
	}
	pages, err := p.native.ExtractPages(ctx, doc.Data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("Native text extraction interrupted")
		} else {
			log.Warn().Err(err).Msg("Native text extraction failed, treating as empty")
		}
		return nil
	}
	return pages
}

// joinPages writes each trimmed page followed by a delimiter line, so pages
// "A" and "B" become "A\n---\nB\n---\n". Blank pages still emit a delimiter.
func (p *Pipeline) joinPages(pages []string) string {
	var b strings.Builder
	for _, page := range pages {
		b.WriteString(strings.TrimSpace(page))
		b.WriteString("\n")
		b.WriteString(p.delimiter)
		b.WriteString("\n")
	}
	return b.String()
}

func newResult(text string, method Method, pages int, start time.Time) *Result {
	return &Result{
		Text:               text,
		Method:             method,
		CharacterCount:     utf8.RuneCountInString(text),
		PageCount:          pages,
		ProcessingDuration: time.Since(start),
	}
}
