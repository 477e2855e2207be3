package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoProviders        = errors.New("no LLM provider configured")
	ErrAllProvidersFailed = errors.New("all LLM providers failed")
)

// ValidationError reports unusable analysis input. It is returned before
// any provider is called.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// AnalysisError represents an analysis setup failure.
type AnalysisError struct {
	Op      string
	Err     error
	Details string
}

func (e *AnalysisError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewAnalysisError(op string, err error, details string) *AnalysisError {
	return &AnalysisError{Op: op, Err: err, Details: details}
}

// ProviderAttempt records the outcome of one provider call.
type ProviderAttempt struct {
	Provider string
	Success  bool
	Raw      string
	Reason   string
}

// LLMFailureError is returned when every provider failed.
type LLMFailureError struct {
	Attempts []ProviderAttempt
}

func (e *LLMFailureError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, a.Provider+": "+a.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrAllProvidersFailed, strings.Join(reasons, "; "))
}

func (e *LLMFailureError) Unwrap() error {
	return ErrAllProvidersFailed
}
