package port

import (
	"context"

	"resumeanalyzer/internal/domain"
)

// AuditRepository persists one LogEntry per analysed document.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.LogEntry) error
	ListRecent(ctx context.Context, offset, limit int) ([]domain.LogEntry, int, error)
	Ping(ctx context.Context) error
}
