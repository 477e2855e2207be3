package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"inmovc/internal/analysis"
	"inmovc/internal/extraction"
	"inmovc/internal/store"
	"inmovc/internal/uploads"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"detail": message})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var validationErr *analysis.ValidationError
	var extractionErr *extraction.ExtractionError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, uploads.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, extraction.ErrOCRUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analysis.ErrNoProviders):
		return http.StatusInternalServerError
	case errors.Is(err, analysis.ErrAllProvidersFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeError hides temp paths and bounds the message length.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.ReplaceAll(msg, os.TempDir(), "[tmp]")
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return msg
}

func sanitizeLogString(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
