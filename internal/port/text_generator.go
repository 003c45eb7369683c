package port

import "context"

// TextGenerator is the generative model collaborator. It returns the raw
// completion text and enforces no schema on it.
//
// Failures are reported as *domain.LLMError with TIMEOUT, RATE_LIMITED,
// NETWORK_ERROR or SERVICE_ERROR codes.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}
