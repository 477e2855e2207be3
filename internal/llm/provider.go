// Package llm holds the language-model providers used to turn extracted
// listing text into structured marketing copy. Every provider returns the
// model's reply as a raw JSON object; schema checks belong to the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// Generation defaults shared by every provider.
const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2000
)

// Provider generates a JSON object from a system prompt and a user message.
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error)
}

var (
	ErrMissingAPIKey   = errors.New("API key not configured")
	ErrHTTPStatus      = errors.New("non-2xx response")
	ErrEmptyCompletion = errors.New("empty completion")
	ErrInvalidJSON     = errors.New("completion is not a JSON object")
)

// ProviderError describes one failed provider call.
type ProviderError struct {
	Provider   string
	Op         string
	Err        error
	StatusCode int
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %v (status %d)", e.Provider, e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider, op string, err error, status int) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err, StatusCode: status}
}

// decodeObject checks that content is exactly one JSON object and returns it compacted.
func decodeObject(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyCompletion
	}
	if !strings.HasPrefix(content, "{") {
		return nil, fmt.Errorf("%w: starts with %q", ErrInvalidJSON, firstRune(content))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
