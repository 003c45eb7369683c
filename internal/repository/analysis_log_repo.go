// Package repository holds the SQL audit store shared by the postgres and
// sqlite backends. Queries are written with ? placeholders and rebound for
// the driver in use.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/port"
)

const logColumns = `id, request_id, user_id, file_name, mode, query, status,
	error_code, source, result_summary, archive_key, created_at`

type analysisLogRepo struct {
	db *sqlx.DB
}

// NewAnalysisLogRepo creates a new SQL-backed AuditRepository.
func NewAnalysisLogRepo(db *sqlx.DB) port.AuditRepository {
	return &analysisLogRepo{db: db}
}

func (r *analysisLogRepo) Create(ctx context.Context, entry *domain.LogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO analysis_logs (`+logColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.RequestID, entry.UserID, entry.Filename, entry.Mode, entry.Query, entry.Status,
		entry.ErrorCode, entry.Source, entry.ResultSummary, entry.ArchiveKey, entry.Timestamp.UTC())
	if err != nil {
		return &domain.PersistenceError{Op: "analysisLogRepo.Create", Err: err}
	}
	return nil
}

func (r *analysisLogRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.LogEntry, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM analysis_logs`); err != nil {
		return nil, 0, fmt.Errorf("analysisLogRepo.ListRecent count: %w", err)
	}

	entries := []domain.LogEntry{}
	err := r.db.SelectContext(ctx, &entries, r.db.Rebind(
		`SELECT `+logColumns+` FROM analysis_logs
		 ORDER BY created_at DESC, file_name ASC
		 LIMIT ? OFFSET ?`),
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("analysisLogRepo.ListRecent: %w", err)
	}
	return entries, total, nil
}

func (r *analysisLogRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("analysisLogRepo.Ping: %w", err)
	}
	return nil
}
