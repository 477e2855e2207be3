package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"inmovc/internal/llm"
	"inmovc/pkg/models"
)

type stubProvider struct {
	name  string
	reply string
	err   error
	calls int

	gotSystem string
	gotUser   string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	s.calls++
	s.gotSystem = systemPrompt
	s.gotUser = userMessage
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.reply), nil
}

var sampleResult = models.AnalysisResult{
	AnnouncementTitle: "T3 com vista rio em Alcântara",
	LongDescriptionPt: "Apartamento T3 totalmente remodelado, com varanda e vista desafogada sobre o Tejo.",
	LongDescriptionEn: "Fully refurbished three-bedroom apartment with a balcony and open views over the Tagus.",
	InstagramPost:     "🏡 Novo no mercado! T3 com vista rio. #lisboa #imobiliario",
	KeyFeatures:       []string{"3 quartos", "Varanda", "Vista rio", "Garagem", "Remodelado"},
	TargetAudience:    "Famílias jovens e investidores",
	CallToAction:      "Marque já a sua visita!",
}

func sampleJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(sampleResult)
	if err != nil {
		t.Fatalf("marshal sample: %v", err)
	}
	return string(b)
}

func TestAnalyzeRejectsBlankInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		provider := &stubProvider{name: "openai", reply: sampleJSON(t)}
		_, err := NewAnalyzer(provider).Analyze(context.Background(), Request{ExtractedText: text})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Analyze(%q) error = %v, want *ValidationError", text, err)
		}
		if vErr.Field != "extracted_text" {
			t.Errorf("Field = %q, want extracted_text", vErr.Field)
		}
		if provider.calls != 0 {
			t.Errorf("provider called %d times for blank input", provider.calls)
		}
	}
}

func TestAnalyzeNoProviders(t *testing.T) {
	_, err := NewAnalyzer().Analyze(context.Background(), Request{ExtractedText: "Moradia V4"})
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("error = %v, want ErrNoProviders", err)
	}
	var aErr *AnalysisError
	if !errors.As(err, &aErr) {
		t.Errorf("error %T is not *AnalysisError", err)
	}
}

func TestAnalyzeRoundTrip(t *testing.T) {
	provider := &stubProvider{name: "openai", reply: sampleJSON(t)}

	got, err := NewAnalyzer(provider).Analyze(context.Background(), Request{ExtractedText: "Apartamento T3 em Alcântara"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff(&sampleResult, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if provider.gotSystem != SystemPrompt {
		t.Error("provider did not receive the system prompt")
	}
	if !strings.Contains(provider.gotUser, "Apartamento T3 em Alcântara") {
		t.Error("user message does not embed the extracted text")
	}
}

func TestAnalyzeFailover(t *testing.T) {
	missingField := `{"announcementTitle":"x","longDescriptionPt":"x","longDescriptionEn":"x","instagramPost":"x","keyFeatures":["a"],"targetAudience":"x"}`
	wrongType := strings.Replace(missingField, `"targetAudience":"x"`, `"targetAudience":"x","callToAction":42`, 1)

	tests := []struct {
		name    string
		primary *stubProvider
	}{
		{"transport error", &stubProvider{name: "openai", err: &llm.ProviderError{Provider: "openai", Op: "Generate", Err: llm.ErrHTTPStatus, StatusCode: 500}}},
		{"missing required field", &stubProvider{name: "openai", reply: missingField}},
		{"mistyped field", &stubProvider{name: "openai", reply: wrongType}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			secondary := &stubProvider{name: "gemini", reply: sampleJSON(t)}

			got, err := NewAnalyzer(tc.primary, secondary).Analyze(context.Background(), Request{ExtractedText: "Loja no Porto"})
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if diff := cmp.Diff(&sampleResult, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			if tc.primary.calls != 1 || secondary.calls != 1 {
				t.Errorf("calls = %d/%d, want 1/1", tc.primary.calls, secondary.calls)
			}
		})
	}
}

func TestAnalyzeStopsAtFirstSuccess(t *testing.T) {
	primary := &stubProvider{name: "openai", reply: sampleJSON(t)}
	secondary := &stubProvider{name: "gemini", reply: sampleJSON(t)}

	if _, err := NewAnalyzer(primary, secondary).Analyze(context.Background(), Request{ExtractedText: "Terreno"}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times after primary succeeded", secondary.calls)
	}
}

func TestAnalyzeAllProvidersMalformed(t *testing.T) {
	primary := &stubProvider{name: "openai", err: fmt.Errorf("openai Generate: %w", llm.ErrInvalidJSON)}
	secondary := &stubProvider{name: "gemini", reply: `{"announcementTitle": 7}`}

	_, err := NewAnalyzer(primary, secondary).Analyze(context.Background(), Request{ExtractedText: "Armazém"})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("error = %v, want ErrAllProvidersFailed", err)
	}

	var failure *LLMFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("error %T is not *LLMFailureError", err)
	}
	if len(failure.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(failure.Attempts))
	}
	for _, a := range failure.Attempts {
		if a.Success || a.Reason == "" {
			t.Errorf("attempt %+v should be a failure with a reason", a)
		}
	}
	if failure.Attempts[1].Raw != `{"announcementTitle": 7}` {
		t.Errorf("Raw = %q", failure.Attempts[1].Raw)
	}
	msg := err.Error()
	if !strings.Contains(msg, "openai: ") || !strings.Contains(msg, "gemini: ") {
		t.Errorf("message %q does not aggregate provider reasons", msg)
	}
}

func TestAnalyzeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &stubProvider{name: "openai", reply: sampleJSON(t)}
	_, err := NewAnalyzer(provider).Analyze(ctx, Request{ExtractedText: "Quinta"})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("error = %v, want ErrAllProvidersFailed", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider called after cancellation")
	}
}

// The primary answers 503 and the secondary answers with a valid body,
// both over the real provider wire formats.
func TestAnalyzeFailoverOverHTTP(t *testing.T) {
	openaiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer openaiSrv.Close()

	geminiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply, _ := json.Marshal(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": sampleJSON(t)}}}},
			},
		})
		w.Write(reply)
	}))
	defer geminiSrv.Close()

	openaiProvider, err := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: "sk", BaseURL: openaiSrv.URL})
	if err != nil {
		t.Fatal(err)
	}
	geminiProvider, err := llm.NewGeminiProvider(llm.GeminiConfig{APIKey: "g", BaseURL: geminiSrv.URL})
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewAnalyzer(openaiProvider, geminiProvider).Analyze(context.Background(), Request{ExtractedText: "Moradia"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff(&sampleResult, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestPrioritize(t *testing.T) {
	openai := &stubProvider{name: "openai"}
	gemini := &stubProvider{name: "gemini"}
	vertex := &stubProvider{name: "vertex"}

	tests := []struct {
		primary string
		want    []string
	}{
		{"openai", []string{"openai", "gemini", "vertex"}},
		{"gemini", []string{"gemini", "openai", "vertex"}},
		{"vertex", []string{"vertex", "openai", "gemini"}},
		{"unknown", []string{"openai", "gemini", "vertex"}},
	}

	for _, tc := range tests {
		t.Run(tc.primary, func(t *testing.T) {
			a := NewAnalyzer(Prioritize([]llm.Provider{openai, gemini, vertex}, tc.primary)...)
			if diff := cmp.Diff(tc.want, a.Providers()); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
