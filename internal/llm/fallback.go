package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Fallback tries generators in order, skipping those whose circuit was
// opened by a rate limit. It implements port.TextGenerator.
type Fallback struct {
	generators []port.TextGenerator
	circuits   []*circuitState
	now        func() time.Time
	log        *zap.Logger
}

// NewFallback chains generators in priority order. A single generator is
// returned unwrapped.
func NewFallback(log *zap.Logger, generators ...port.TextGenerator) port.TextGenerator {
	if len(generators) == 1 {
		return generators[0]
	}
	circuits := make([]*circuitState, len(generators))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Fallback{
		generators: generators,
		circuits:   circuits,
		now:        time.Now,
		log:        logger.OrNop(log),
	}
}

// Generate returns the first successful reply. A non-retryable failure is
// returned at once without trying the remaining providers. When every
// provider is rate limited the result is a RATE_LIMITED error whose
// RetryAfter is the earliest reset; otherwise the last provider's error is
// returned.
func (f *Fallback) Generate(ctx context.Context, prompt string) (string, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, g := range f.generators {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.log.Debug("skipping rate limited provider",
				zap.String("model", g.Model()), zap.Time("until", resetAt))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := g.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		f.log.Warn("provider failed", zap.String("model", g.Model()), zap.Error(err))
		lastErr = err

		var llmErr *domain.LLMError
		if errors.As(err, &llmErr) && !llmErr.Retryable() {
			return "", err
		}
		if llmErr != nil && llmErr.Code == domain.LLMRateLimited {
			resetAt := now.Add(llmErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		e := domain.NewLLMError(domain.LLMRateLimited, fmt.Errorf("all %d providers rate limited", len(f.generators)))
		e.RetryAfter = retryAfter
		return "", e
	}
	return "", lastErr
}

// Model returns the primary generator's model name.
func (f *Fallback) Model() string {
	return f.generators[0].Model()
}
