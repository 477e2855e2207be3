package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
	"inmovc/internal/logger"
)

// PopplerTextExtractor reads embedded text with pdftotext.
type PopplerTextExtractor struct {
	runner Runner
	cmd    string
	log    zerolog.Logger
}

// NewPopplerTextExtractor creates a text extractor that invokes cmd
// (usually "pdftotext") through runner. A nil runner uses ExecRunner.
func NewPopplerTextExtractor(runner Runner, cmd string) *PopplerTextExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cmd == "" {
		cmd = "pdftotext"
	}
	return &PopplerTextExtractor{
		runner: runner,
		cmd:    cmd,
		log:    logger.WithComponent("native-text"),
	}
}

// ExtractPages returns the text layer of each page. pdftotext terminates every
// page with a form feed, which is used to split the output.
func (p *PopplerTextExtractor) ExtractPages(ctx context.Context, pdf []byte) ([]string, error) {
	const op = "ExtractPages"

	path, cleanup, err := writeTempPDF(pdf)
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to stage PDF")
	}
	defer cleanup()

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.cmd, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		details := strings.TrimSpace(string(errb))
		if details == "" {
			details = "pdftotext failed"
		}
		return nil, WrapExtractionError(op, err, details)
	}

	pages := splitPages(string(out))
	p.log.Debug().
		Int("pages", len(pages)).
		Int("bytes", len(out)).
		Msg("Native text extracted")
	return pages, nil
}

func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, "\f")
	// Output ends with a form feed, leaving an empty trailing element.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// PageCount returns the number of pages in pdf. pdfcpu panics on some
// malformed cross-reference sections; those are reported as ErrInvalidPDF.
func PageCount(pdf []byte) (n int, err error) {
	const op = "PageCount"

	defer func() {
		if r := recover(); r != nil {
			n, err = 0, NewExtractionError(op, ErrInvalidPDF, fmt.Sprint(r))
		}
	}()

	n, err = api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, WrapExtractionError(op, ErrInvalidPDF, err.Error())
	}
	return n, nil
}

// HasPDFHeader reports whether data starts with the PDF magic bytes.
func HasPDFHeader(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

func writeTempPDF(pdf []byte) (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "inmovc-*")
	if err != nil {
		return "", nil, fmt.Errorf("temp dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	path = filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, pdf, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp pdf: %w", err)
	}
	return path, cleanup, nil
}
