// Package llm holds provider-neutral pieces of the model client: error
// classification, request pacing and provider fallback.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"google.golang.org/genai"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/logger"
)

var (
	// ErrEmptyResponse is returned when the provider answers without any text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrTruncated is returned when the reply hit the output token limit.
	ErrTruncated = errors.New("model output truncated at max tokens")
)

// StatusError is a non-2xx reply from an HTTP model API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// NewStatusError builds a StatusError from resp, reading its Retry-After header.
func NewStatusError(provider string, resp *http.Response, body []byte) *StatusError {
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       logger.TruncateForLog(string(body), 500),
		RetryAfter: ParseRetryAfterHeader(resp.Header.Get("Retry-After")),
	}
}

// ParseRetryAfterHeader parses a Retry-After header given in seconds or as
// an HTTP date. It returns 0 when the value is absent or unparsable.
func ParseRetryAfterHeader(val string) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(val); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// defaultRetryAfter is used for 429s that carry no delay hint.
const defaultRetryAfter = 5 * time.Second

var reRetryAfter = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)

// Classify maps a provider error onto an LLMError. Cancellation of the
// caller's context is returned unchanged so it is never retried.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var llmErr *domain.LLMError
	if errors.As(err, &llmErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewLLMError(domain.LLMTimeout, err)
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrTruncated) {
		return domain.NewLLMError(domain.LLMMalformedJSON, err)
	}

	if code, msg, hint, ok := apiStatus(err); ok {
		switch {
		case code == http.StatusTooManyRequests:
			e := domain.NewLLMError(domain.LLMRateLimited, err)
			e.RetryAfter = hint
			if e.RetryAfter <= 0 {
				e.RetryAfter = retryAfterFromMessage(msg)
			}
			return e
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return domain.NewLLMError(domain.LLMTimeout, err)
		case code >= 500:
			return domain.NewLLMError(domain.LLMNetworkError, err)
		default:
			return domain.NewLLMError(domain.LLMServiceError, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.NewLLMError(domain.LLMTimeout, err)
		}
		return domain.NewLLMError(domain.LLMNetworkError, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return domain.NewLLMError(domain.LLMNetworkError, err)
	}

	return domain.NewLLMError(domain.LLMServiceError, err)
}

// apiStatus extracts the HTTP status, message and any Retry-After hint from
// a provider error.
func apiStatus(err error) (int, string, time.Duration, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr != nil {
		return statusErr.StatusCode, statusErr.Body, statusErr.RetryAfter, true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, 0, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, 0, true
	}
	return 0, "", 0, false
}

// retryAfterFromMessage reads a "retry after N seconds" hint from a provider
// message, falling back to defaultRetryAfter.
func retryAfterFromMessage(msg string) time.Duration {
	m := reRetryAfter.FindStringSubmatch(msg)
	if len(m) < 2 {
		return defaultRetryAfter
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}
