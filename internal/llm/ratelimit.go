package llm

import (
	"context"

	"golang.org/x/time/rate"

	"resumeanalyzer/internal/port"
)

// Limited paces calls to the wrapped generator with a token bucket.
type Limited struct {
	next    port.TextGenerator
	limiter *rate.Limiter
}

// NewLimited wraps next so that at most rps calls start per second, with
// the given burst. A non-positive rps disables pacing and returns next.
func NewLimited(next port.TextGenerator, rps float64, burst int) port.TextGenerator {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Generate waits for a token and then forwards the prompt.
func (l *Limited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Wait fails early when the deadline is shorter than the token delay.
		return "", context.DeadlineExceeded
	}
	return l.next.Generate(ctx, prompt)
}

// Model returns the wrapped generator's model name.
func (l *Limited) Model() string {
	return l.next.Model()
}
