package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
)

// AnonymousUser is recorded when a batch carries no user id.
const AnonymousUser = "anonymous"

const resultSummaryLimit = 2000

// AnalysisService drives a batch of résumés through extraction and evaluation.
type AnalysisService interface {
	Analyze(ctx context.Context, input domain.AnalysisInput) (*domain.BatchResult, error)
}

type analysisService struct {
	extractor   port.TextExtractor
	evaluator   EvaluationService
	archive     port.DocumentArchive
	audit       AuditSink
	extractGate *semaphore.Weighted
	maxFiles    int
	now         func() time.Time
	log         *zap.Logger
}

// AnalysisConfig bounds a batch.
type AnalysisConfig struct {
	// ExtractionConcurrency caps documents extracting at once.
	ExtractionConcurrency int
	// MaxFiles rejects larger batches. Zero means unlimited.
	MaxFiles int
}

// NewAnalysisService creates a new AnalysisService. archive may be nil.
func NewAnalysisService(
	extractor port.TextExtractor,
	evaluator EvaluationService,
	archive port.DocumentArchive,
	audit AuditSink,
	cfg AnalysisConfig,
	log *zap.Logger,
) AnalysisService {
	if cfg.ExtractionConcurrency < 1 {
		cfg.ExtractionConcurrency = 1
	}
	return &analysisService{
		extractor:   extractor,
		evaluator:   evaluator,
		archive:     archive,
		audit:       audit,
		extractGate: semaphore.NewWeighted(int64(cfg.ExtractionConcurrency)),
		maxFiles:    cfg.MaxFiles,
		now:         time.Now,
		log:         logger.OrNop(log),
	}
}

// Analyze processes every document concurrently and returns one entry per
// input, in input order. Per-document failures are recorded in the entry;
// only cancellation of ctx fails the call, and then no partial result is
// returned. Each document's LogEntry is emitted as soon as it is terminal,
// so a cancelled batch still audits the documents that finished.
func (s *analysisService) Analyze(ctx context.Context, input domain.AnalysisInput) (*domain.BatchResult, error) {
	if len(input.Documents) == 0 {
		return nil, domain.ErrNoFiles
	}
	if s.maxFiles > 0 && len(input.Documents) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d files, limit is %d", domain.ErrTooManyFiles, len(input.Documents), s.maxFiles)
	}

	requestID := strings.TrimSpace(input.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		userID = AnonymousUser
	}
	query := strings.TrimSpace(input.Query)
	mode := domain.ModeForQuery(query)

	log := s.log.With(zap.String("request_id", requestID), zap.String("mode", string(mode)))
	log.Info("analysis started", zap.Int("documents", len(input.Documents)))
	start := s.now()

	result := &domain.BatchResult{
		RequestID: requestID,
		UserID:    userID,
		Mode:      mode,
		Query:     query,
		Entries:   make([]domain.BatchEntry, len(input.Documents)),
	}
	entries := result.Entries

	var g errgroup.Group
	for i := range input.Documents {
		entries[i] = domain.BatchEntry{Index: i, Filename: input.Documents[i].Filename, State: domain.StatePending}
		g.Go(func() error {
			// Each goroutine writes only its own slot.
			if err := s.process(ctx, log, requestID, mode, query, input.Documents[i], &entries[i]); err != nil {
				return err
			}
			s.emit(result, &entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("analysis cancelled", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		log.Warn("analysis cancelled", zap.Error(err))
		return nil, err
	}

	failed := 0
	for i := range entries {
		if entries[i].Failed() {
			failed++
		}
	}
	log.Info("analysis finished",
		zap.Int("documents", len(entries)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
	return result, nil
}

// process moves one document to a terminal state. It returns an error only
// when ctx is cancelled.
func (s *analysisService) process(
	ctx context.Context,
	log *zap.Logger,
	requestID string,
	mode domain.Mode,
	query string,
	doc domain.RawDocument,
	entry *domain.BatchEntry,
) error {
	log = log.With(zap.String("file", doc.Filename), zap.Int("index", entry.Index))

	if s.archive != nil {
		key, err := s.archive.Archive(ctx, requestID, entry.Index, doc)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("archive failed", zap.Error(err))
		} else {
			entry.ArchiveKey = key
		}
	}

	s.advance(log, entry, domain.StateExtracting)
	extracted, err := s.extract(ctx, doc)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		entry.Err = err
		s.advance(log, entry, domain.StateExtractionFailed)
		log.Warn("extraction failed", zap.String("code", domain.FailureCode(err)), zap.Error(err))
		return nil
	}
	entry.Source = extracted.Source
	s.advance(log, entry, domain.StateExtracted)

	s.advance(log, entry, domain.StateEvaluating)
	result, err := s.evaluator.Evaluate(ctx, domain.EvaluationRequest{
		Text:     extracted.Text,
		Mode:     mode,
		Query:    query,
		Filename: doc.Filename,
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		entry.Err = err
		s.advance(log, entry, domain.StateEvalFailed)
		log.Warn("evaluation failed", zap.String("code", domain.FailureCode(err)), zap.Error(err))
		return nil
	}
	entry.Result = result
	s.advance(log, entry, domain.StateEvaluated)
	return nil
}

func (s *analysisService) extract(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error) {
	if err := s.extractGate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.extractGate.Release(1)
	return s.extractor.Extract(ctx, doc)
}

func (s *analysisService) advance(log *zap.Logger, entry *domain.BatchEntry, next domain.DocumentState) {
	if !entry.State.CanTransition(next) {
		log.DPanic("invalid document state transition",
			zap.String("from", string(entry.State)), zap.String("to", string(next)))
	}
	entry.State = next
	log.Debug("document state", zap.String("state", string(next)))
}

// emit records entry once it is terminal. batch supplies only the request
// fields, which are fixed before the fan-out starts.
func (s *analysisService) emit(batch *domain.BatchResult, entry *domain.BatchEntry) {
	if s.audit == nil {
		return
	}
	le := domain.LogEntry{
		ID:         uuid.New(),
		RequestID:  batch.RequestID,
		UserID:     batch.UserID,
		Filename:   entry.Filename,
		Mode:       batch.Mode,
		Query:      batch.Query,
		Status:     domain.LogStatusSuccess,
		Source:     string(entry.Source),
		ArchiveKey: entry.ArchiveKey,
		Timestamp:  s.now().UTC(),
	}
	if entry.Failed() {
		le.Status = domain.LogStatusFailed
		le.ErrorCode = domain.FailureCode(entry.Err)
		if entry.Err != nil {
			le.ResultSummary = logger.TruncateForLog(entry.Err.Error(), resultSummaryLimit)
		}
	} else {
		le.ResultSummary = summarizeResult(entry.Result)
	}
	s.audit.Emit(le)
}

func summarizeResult(r *domain.EvaluationResult) string {
	if r == nil {
		return ""
	}
	var v any = r.Summary
	if r.Mode == domain.ModeRanking {
		v = r.Ranking
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return logger.TruncateForLog(string(b), resultSummaryLimit)
}
