package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"inmovc/internal/logger"
)

// Page is one rasterized page image.
type Page struct {
	Number int
	Image  []byte // PNG
}

// Rasterizer renders every page of a PDF to an image, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]Page, error)
}

// Recognizer performs OCR on a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// OCRFallbackExtractor rasterizes a PDF and recognizes each page independently.
// A page whose recognition fails contributes "" instead of aborting the run.
type OCRFallbackExtractor struct {
	rasterizer Rasterizer
	recognizer Recognizer
	log        zerolog.Logger
}

func NewOCRFallbackExtractor(rasterizer Rasterizer, recognizer Recognizer) *OCRFallbackExtractor {
	return &OCRFallbackExtractor{
		rasterizer: rasterizer,
		recognizer: recognizer,
		log:        logger.WithComponent("ocr-fallback"),
	}
}

// RecognizePages implements PageOCR.
func (o *OCRFallbackExtractor) RecognizePages(ctx context.Context, pdf []byte) ([]string, error) {
	const op = "RecognizePages"

	if o.rasterizer == nil {
		return nil, NewExtractionError(op, ErrOCRUnavailable, "no rasterizer configured")
	}
	if o.recognizer == nil {
		return nil, NewExtractionError(op, ErrOCRUnavailable, "no recognizer configured")
	}

	pages, err := o.rasterizer.Rasterize(ctx, pdf)
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to rasterize document")
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, WrapExtractionError(op, err, fmt.Sprintf("canceled at page %d", page.Number))
		}

		text, err := o.recognizer.Recognize(ctx, page.Image)
		if err != nil {
			if errors.Is(err, ErrOCRUnavailable) {
				return nil, WrapExtractionError(op, err, "recognizer unavailable")
			}
			o.log.Warn().
				Err(err).
				Int("page", page.Number).
				Msg("Page recognition failed, continuing with empty text")
			continue
		}
		texts[i] = text
	}

	o.log.Info().
		Int("pages", len(pages)).
		Msg("OCR fallback completed")
	return texts, nil
}

// PopplerRasterizer renders pages with pdftoppm.
type PopplerRasterizer struct {
	runner Runner
	cmd    string
	dpi    int
}

func NewPopplerRasterizer(runner Runner, cmd string, dpi int) *PopplerRasterizer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cmd == "" {
		cmd = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &PopplerRasterizer{runner: runner, cmd: cmd, dpi: dpi}
}

// Rasterize implements Rasterizer.
func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	const op = "Rasterize"

	path, cleanup, err := writeTempPDF(pdf)
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to stage PDF")
	}
	defer cleanup()

	prefix := filepath.Join(filepath.Dir(path), "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cmd, "-r", strconv.Itoa(r.dpi), "-png", path, prefix)
	if err != nil {
		if isMissingBinary(err) {
			return nil, NewExtractionError(op, ErrOCRUnavailable, fmt.Sprintf("%s not found", r.cmd))
		}
		return nil, WrapExtractionError(op, err, strings.TrimSpace(string(errb)))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return nil, NewExtractionError(op, ErrInvalidPDF, "pdftoppm produced no images")
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})

	pages := make([]Page, 0, len(matches))
	for _, m := range matches {
		img, err := os.ReadFile(m)
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to read rendered page")
		}
		pages = append(pages, Page{Number: pageNumber(m), Image: img})
	}
	return pages, nil
}

// pageNumber parses N out of ".../page-N.png". pdftoppm zero-pads N.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	n, _ := strconv.Atoi(base[idx+1:])
	return n
}

// TesseractRecognizer runs the tesseract CLI on a page image.
type TesseractRecognizer struct {
	runner   Runner
	cmd      string
	language string
}

// NewTesseractRecognizer creates a recognizer for cmd. An absolute cmd that
// does not exist falls back to "tesseract" on PATH.
func NewTesseractRecognizer(runner Runner, cmd, language string) *TesseractRecognizer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cmd == "" {
		cmd = "tesseract"
	} else if filepath.IsAbs(cmd) {
		if _, err := os.Stat(cmd); err != nil {
			cmd = filepath.Base(cmd)
		}
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractRecognizer{runner: runner, cmd: cmd, language: language}
}

// Recognize implements Recognizer.
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	const op = "Recognize"

	dir, err := os.MkdirTemp("", "inmovc-ocr-*")
	if err != nil {
		return "", WrapExtractionError(op, err, "temp dir")
	}
	defer os.RemoveAll(dir)

	imgPath := filepath.Join(dir, "page.png")
	if err := os.WriteFile(imgPath, image, 0o600); err != nil {
		return "", WrapExtractionError(op, err, "write page image")
	}

	// tesseract <img> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.cmd, imgPath, "stdout", "-l", t.language)
	if err != nil {
		if isMissingBinary(err) {
			return "", NewExtractionError(op, ErrOCRUnavailable, fmt.Sprintf("%s not found", t.cmd))
		}
		return "", WrapExtractionError(op, err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}
