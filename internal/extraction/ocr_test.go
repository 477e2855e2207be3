package extraction

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubRasterizer struct {
	pages []Page
	err   error
}

func (s stubRasterizer) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	return s.pages, s.err
}

// stubRecognizer returns the image bytes as text, failing for images listed in fail.
type stubRecognizer struct {
	fail  map[string]error
	calls []string
}

func (s *stubRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	s.calls = append(s.calls, string(image))
	if err, ok := s.fail[string(image)]; ok {
		return "", err
	}
	return "text of " + string(image), nil
}

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}

func threePages() []Page {
	return []Page{
		{Number: 1, Image: []byte("p1")},
		{Number: 2, Image: []byte("p2")},
		{Number: 3, Image: []byte("p3")},
	}
}

func TestOCRFallbackSkipsFailedPage(t *testing.T) {
	rec := &stubRecognizer{fail: map[string]error{"p2": errors.New("tesseract crashed")}}
	o := NewOCRFallbackExtractor(stubRasterizer{pages: threePages()}, rec)

	texts, err := o.RecognizePages(context.Background(), samplePDF)
	if err != nil {
		t.Fatalf("RecognizePages() error = %v", err)
	}

	want := []string{"text of p1", "", "text of p3"}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Errorf("texts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p1", "p2", "p3"}, rec.calls); diff != "" {
		t.Errorf("pages not processed in order (-want +got):\n%s", diff)
	}
}

func TestOCRFallbackUnavailable(t *testing.T) {
	tests := []struct {
		name       string
		rasterizer Rasterizer
		recognizer Recognizer
	}{
		{"no rasterizer", nil, &stubRecognizer{}},
		{"no recognizer", stubRasterizer{pages: threePages()}, nil},
		{"rasterizer binary missing", stubRasterizer{err: NewExtractionError("Rasterize", ErrOCRUnavailable, "pdftoppm not found")}, &stubRecognizer{}},
		{"recognizer binary missing", stubRasterizer{pages: threePages()}, &stubRecognizer{fail: map[string]error{
			"p1": NewExtractionError("Recognize", ErrOCRUnavailable, "tesseract not found"),
		}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOCRFallbackExtractor(tc.rasterizer, tc.recognizer).RecognizePages(context.Background(), samplePDF)
			if !errors.Is(err, ErrOCRUnavailable) {
				t.Fatalf("error = %v, want ErrOCRUnavailable", err)
			}
		})
	}
}

func TestOCRFallbackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOCRFallbackExtractor(stubRasterizer{pages: threePages()}, &stubRecognizer{}).RecognizePages(ctx, samplePDF)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPopplerRasterizerOrdersPages(t *testing.T) {
	var gotArgs []string
	runner := runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = args
		prefix := args[len(args)-1]
		for _, n := range []string{"10", "2", "1"} {
			if err := os.WriteFile(prefix+"-"+n+".png", []byte("img"+n), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	})

	pages, err := NewPopplerRasterizer(runner, "pdftoppm", 150).Rasterize(context.Background(), samplePDF)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}

	var numbers []int
	var images []string
	for _, p := range pages {
		numbers = append(numbers, p.Number)
		images = append(images, string(p.Image))
	}
	if diff := cmp.Diff([]int{1, 2, 10}, numbers); diff != "" {
		t.Errorf("page order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"img1", "img2", "img10"}, images); diff != "" {
		t.Errorf("page images mismatch (-want +got):\n%s", diff)
	}
	if gotArgs[0] != "-r" || gotArgs[1] != "150" || gotArgs[2] != "-png" {
		t.Errorf("unexpected pdftoppm args: %v", gotArgs)
	}
}

func TestPopplerRasterizerMissingBinary(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	})

	_, err := NewPopplerRasterizer(runner, "pdftoppm", 300).Rasterize(context.Background(), samplePDF)
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Fatalf("error = %v, want ErrOCRUnavailable", err)
	}
}

func TestPopplerRasterizerNoImages(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, nil, nil
	})

	_, err := NewPopplerRasterizer(runner, "", 0).Rasterize(context.Background(), samplePDF)
	if !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("error = %v, want ErrInvalidPDF", err)
	}
}

func TestTesseractRecognizer(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		img, err := os.ReadFile(args[0])
		if err != nil {
			return nil, nil, err
		}
		return []byte("recognized " + string(img)), nil, nil
	})

	text, err := NewTesseractRecognizer(runner, "tesseract", "por+eng").Recognize(context.Background(), []byte("png"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if text != "recognized png" {
		t.Errorf("text = %q", text)
	}
	if gotName != "tesseract" {
		t.Errorf("cmd = %q, want tesseract", gotName)
	}
	if diff := cmp.Diff([]string{"stdout", "-l", "por+eng"}, gotArgs[1:]); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTesseractRecognizerFallsBackToPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "bin", "tesseract")
	r := NewTesseractRecognizer(nil, missing, "")
	if r.cmd != "tesseract" {
		t.Errorf("cmd = %q, want tesseract", r.cmd)
	}
	if r.language != "eng" {
		t.Errorf("language = %q, want eng", r.language)
	}
}

func TestTesseractRecognizerFailure(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file\n"), errors.New("exit status 1")
	})

	_, err := NewTesseractRecognizer(runner, "tesseract", "xyz").Recognize(context.Background(), []byte("png"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrOCRUnavailable) {
		t.Error("runtime failure must not be reported as unavailable")
	}
	if !strings.Contains(err.Error(), "Error opening data file") {
		t.Errorf("error %q lacks stderr details", err)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "inmovc-no-such-binary")
	if !isMissingBinary(err) {
		t.Fatalf("isMissingBinary(%v) = false", err)
	}
}
