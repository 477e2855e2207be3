package extraction

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrNoText is returned when neither native extraction nor OCR produced text.
	ErrNoText = errors.New("no text could be extracted")

	// ErrOCRUnavailable is returned when the rasterizer or recognizer is not
	// installed or not configured.
	ErrOCRUnavailable = errors.New("OCR unavailable: rasterization capability missing")

	// ErrInvalidPDF is returned when the provided data is not a PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrEmptyDocument is returned for zero-length input.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrPDFTooLarge is returned when a document exceeds an engine's size limit.
	ErrPDFTooLarge = errors.New("PDF file size exceeds the maximum limit")

	// ErrOCRFailed is returned when a cloud OCR call fails as a whole.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
)

// ExtractionError wraps errors with the operation that failed.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "Rasterize").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err // Already wrapped
	}

	return NewExtractionError(op, err, details)
}
