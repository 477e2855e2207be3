package llm

import (
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{"object", `{"a": 1}`, `{"a":1}`, nil},
		{"surrounding whitespace", "\n  {\"a\": [\"x\", \"y\"]}\n", `{"a":["x","y"]}`, nil},
		{"empty", "   ", "", ErrEmptyCompletion},
		{"markdown fence", "```json\n{\"a\":1}\n```", "", ErrInvalidJSON},
		{"prose", "Here is your JSON: {}", "", ErrInvalidJSON},
		{"array", `[{"a":1}]`, "", ErrInvalidJSON},
		{"truncated", `{"a": "unterminated`, "", ErrInvalidJSON},
		{"trailing garbage", `{"a":1} thanks`, "", ErrInvalidJSON},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeObject(tc.content)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("decodeObject() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeObject() unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("decodeObject() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	err := newProviderError("gemini", "Generate", ErrHTTPStatus, 503)

	if !errors.Is(err, ErrHTTPStatus) {
		t.Error("ProviderError does not unwrap to its cause")
	}
	want := "gemini Generate: non-2xx response (status 503)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var pe *ProviderError
	if !errors.As(error(err), &pe) || pe.StatusCode != 503 {
		t.Errorf("errors.As() failed or wrong status: %+v", pe)
	}
}

func TestCandidateText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"announcementTitle":`), genai.Text(`"T3"}`)}}},
		},
	}
	if got := candidateText(resp); got != `{"announcementTitle":"T3"}` {
		t.Errorf("candidateText() = %q", got)
	}
	if got := candidateText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("candidateText(empty) = %q, want empty", got)
	}
	if got := candidateText(nil); got != "" {
		t.Errorf("candidateText(nil) = %q, want empty", got)
	}
}
