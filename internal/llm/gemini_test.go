package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func geminiReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}, "role": "model"}},
		},
	})
	return string(body)
}

func TestGeminiProviderRequest(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		gotBody geminiRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, geminiReply("{\"keyFeatures\": [\"Piscina\", \"Garagem\"]}"))
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewGeminiProvider() error = %v", err)
	}

	got, err := p.Generate(context.Background(), "SYS", "USER")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(got) != `{"keyFeatures":["Piscina","Garagem"]}` {
		t.Errorf("Generate() = %s", got)
	}

	if gotPath != "/v1/models/gemini-pro:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "g-key" {
		t.Errorf("key query = %q, want g-key", gotKey)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected body shape: %+v", gotBody)
	}
	if text := gotBody.Contents[0].Parts[0].Text; text != "SYS\n\nUSER" {
		t.Errorf("prompt text = %q, want %q", text, "SYS\n\nUSER")
	}
}

func TestGeminiProviderFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403}}`, ErrHTTPStatus, http.StatusForbidden},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyCompletion, http.StatusOK},
		{"fenced json", http.StatusOK, geminiReply("```json\n{}\n```"), ErrInvalidJSON, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			p, err := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewGeminiProvider() error = %v", err)
			}

			_, err = p.Generate(context.Background(), "sys", "user")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tc.wantErr)
			}
			var pe *ProviderError
			if !errors.As(err, &pe) || pe.StatusCode != tc.wantStatus {
				t.Errorf("ProviderError = %+v, want status %d", pe, tc.wantStatus)
			}
		})
	}
}

func TestGeminiEndpointEscapesKey(t *testing.T) {
	p, err := NewGeminiProvider(GeminiConfig{APIKey: "a&b=c", BaseURL: "https://example.test/v1/"})
	if err != nil {
		t.Fatalf("NewGeminiProvider() error = %v", err)
	}
	want := "https://example.test/v1/models/gemini-pro:generateContent?key=a%26b%3Dc"
	if got := p.endpoint(); got != want {
		t.Errorf("endpoint() = %q, want %q", got, want)
	}
}

func TestGeminiTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "SECRET-KEY-123", BaseURL: baseURL})
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	p.log = zerolog.New(&logs)

	_, err = p.Generate(context.Background(), "SYS", "USER")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Errorf("error leaks API key: %v", err)
	}
	if !strings.Contains(err.Error(), "/models/gemini-pro:generateContent") {
		t.Errorf("error lost the endpoint path: %v", err)
	}
	if strings.Contains(logs.String(), "SECRET-KEY-123") {
		t.Errorf("log leaks API key: %s", logs.String())
	}
}
