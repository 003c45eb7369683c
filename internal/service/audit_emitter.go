package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
)

const auditWriteTimeout = 5 * time.Second

// AuditSink accepts LogEntries without blocking the caller.
type AuditSink interface {
	Emit(entry domain.LogEntry)
}

// AuditEmitter queues LogEntries and persists them on a background
// goroutine. A full queue drops entries; persistence failures are logged
// and never returned.
type AuditEmitter struct {
	repo  port.AuditRepository
	queue chan domain.LogEntry
	log   *zap.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	started atomic.Bool
	dropped atomic.Int64
}

// NewAuditEmitter creates an emitter with the given queue capacity. A nil
// repo yields an emitter that discards everything.
func NewAuditEmitter(repo port.AuditRepository, queueSize int, log *zap.Logger) *AuditEmitter {
	if queueSize < 1 {
		queueSize = 1
	}
	return &AuditEmitter{
		repo:  repo,
		queue: make(chan domain.LogEntry, queueSize),
		log:   logger.OrNop(log),
		done:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. It returns immediately.
func (e *AuditEmitter) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.run()
}

func (e *AuditEmitter) run() {
	defer close(e.done)
	e.log.Info("audit emitter started", zap.Int("queue_size", cap(e.queue)))
	for entry := range e.queue {
		e.persist(entry)
	}
	e.log.Info("audit emitter stopped", zap.Int64("dropped", e.dropped.Load()))
}

func (e *AuditEmitter) persist(entry domain.LogEntry) {
	// A fresh context so queued entries still land during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := e.repo.Create(ctx, &entry); err != nil {
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) {
			err = &domain.PersistenceError{Op: "create", Err: err}
		}
		e.log.Error("audit write failed",
			zap.String("request_id", entry.RequestID),
			zap.String("file", entry.Filename),
			zap.Error(err),
		)
	}
}

// Emit enqueues entry. It never blocks.
func (e *AuditEmitter) Emit(entry domain.LogEntry) {
	if e.repo == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.dropped.Add(1)
		return
	}

	select {
	case e.queue <- entry:
	default:
		e.dropped.Add(1)
		e.log.Warn("audit queue full, dropping entry",
			zap.String("request_id", entry.RequestID), zap.String("file", entry.Filename))
	}
}

// Dropped returns how many entries were discarded.
func (e *AuditEmitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops accepting entries and waits until the queue is drained or
// ctx is done.
func (e *AuditEmitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	if !e.started.Load() {
		return nil
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
