package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/llm"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
	"resumeanalyzer/internal/prompt"
)

// maxBackoff caps both exponential growth and provider retry hints.
const maxBackoff = 30 * time.Second

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ResponseValidator turns raw model output into a typed result.
type ResponseValidator interface {
	Validate(mode domain.Mode, filename, raw string) (*domain.EvaluationResult, error)
}

// EvaluationService runs one document's text through the model with a
// bounded retry policy.
type EvaluationService interface {
	Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error)
}

type evaluationService struct {
	prompts   *prompt.Engine
	generator port.TextGenerator
	validator ResponseValidator
	gate      *semaphore.Weighted
	cfg       config.LLMConfig
	log       *zap.Logger
}

// NewEvaluationService creates a new EvaluationService. At most
// cfg.MaxInFlight model calls run at once across all callers.
func NewEvaluationService(
	prompts *prompt.Engine,
	generator port.TextGenerator,
	validator ResponseValidator,
	cfg config.LLMConfig,
	log *zap.Logger,
) EvaluationService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	return &evaluationService{
		prompts:   prompts,
		generator: generator,
		validator: validator,
		gate:      semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		cfg:       cfg,
		log:       logger.OrNop(log),
	}
}

// Evaluate calls the model at most MaxAttempts times. Invalid responses are
// retried with a repair instruction built from the previous failure; other
// retryable failures resend the original prompt. Exhaustion returns the
// last LLMError.
func (s *evaluationService) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	base, err := s.prompts.Build(req)
	if err != nil {
		return nil, fmt.Errorf("evaluationService.Evaluate: %w", err)
	}

	log := s.log.With(zap.String("file", req.Filename), zap.String("mode", string(req.Mode)))
	current := base
	var lastErr *domain.LLMError

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.backoff(attempt-1, lastErr)); err != nil {
				return nil, err
			}
		}

		raw, err := s.call(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var llmErr *domain.LLMError
			if !errors.As(err, &llmErr) {
				return nil, fmt.Errorf("evaluationService.Evaluate: %w", err)
			}
			lastErr = llmErr
			log.Warn("model call failed",
				zap.Int("attempt", attempt), zap.String("code", string(llmErr.Code)), zap.Error(err))
			if !llmErr.Retryable() {
				return nil, llmErr
			}
			continue
		}

		result, err := s.validator.Validate(req.Mode, req.Filename, raw)
		if err == nil {
			log.Debug("model response accepted", zap.Int("attempt", attempt))
			return result, nil
		}

		var llmErr *domain.LLMError
		if !errors.As(err, &llmErr) {
			return nil, fmt.Errorf("evaluationService.Evaluate: %w", err)
		}
		lastErr = llmErr
		log.Warn("model response rejected",
			zap.Int("attempt", attempt),
			zap.String("code", string(llmErr.Code)),
			zap.String("response", logger.TruncateForLog(raw, 300)),
		)
		current = prompt.Repair(base, llmErr.Code, repairReason(llmErr))
	}

	return nil, lastErr
}

// call performs one gated model call under the per-call timeout.
func (s *evaluationService) call(ctx context.Context, text string) (string, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.gate.Release(1)

	callCtx := ctx
	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}

	raw, err := s.generator.Generate(callCtx, text)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", domain.NewLLMError(domain.LLMTimeout, err)
	}
	return "", llm.Classify(err)
}

// backoff returns the wait before retry number n (1-based).
func (s *evaluationService) backoff(n int, last *domain.LLMError) time.Duration {
	wait := s.cfg.BackoffBase
	if s.cfg.Backoff == config.BackoffExponential {
		for i := 1; i < n && wait < maxBackoff; i++ {
			wait *= 2
		}
	}
	if last != nil && last.RetryAfter > wait {
		wait = last.RetryAfter
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}
	return wait
}

func repairReason(err *domain.LLMError) string {
	if err.Err == nil {
		return string(err.Code)
	}
	return logger.TruncateForLog(err.Err.Error(), 400)
}
