package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoFiles        = errors.New("no files were uploaded")
	ErrTooManyFiles   = errors.New("too many files in one request")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownFormat  = errors.New("unknown export format")
)

// ExtractionError is a per-document failure to produce text.
type ExtractionError struct {
	Code ExtractionCode
	Err  error
}

// NewExtractionError wraps err with an extraction failure code.
func NewExtractionError(code ExtractionCode, err error) *ExtractionError {
	return &ExtractionError{Code: code, Err: err}
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// LLMError is a per-document failure talking to or interpreting the model.
type LLMError struct {
	Code       LLMCode
	Err        error
	RetryAfter time.Duration
}

// NewLLMError wraps err with a model failure code.
func NewLLMError(code LLMCode, err error) *LLMError {
	return &LLMError{Code: code, Err: err}
}

func (e *LLMError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// Retryable reports whether another model call may succeed.
func (e *LLMError) Retryable() bool {
	return e.Code != LLMServiceError
}

// PersistenceError is raised by the audit store. It is never surfaced to callers.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExtractionCodeOf returns the extraction code carried by err, if any.
func ExtractionCodeOf(err error) (ExtractionCode, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Code, true
	}
	return "", false
}

// LLMCodeOf returns the model failure code carried by err, if any.
func LLMCodeOf(err error) (LLMCode, bool) {
	var le *LLMError
	if errors.As(err, &le) {
		return le.Code, true
	}
	return "", false
}

// FailureCode returns the reason string reported to callers for a document failure.
func FailureCode(err error) string {
	if code, ok := ExtractionCodeOf(err); ok {
		return string(code)
	}
	if code, ok := LLMCodeOf(err); ok {
		return string(code)
	}
	return "INTERNAL_ERROR"
}
