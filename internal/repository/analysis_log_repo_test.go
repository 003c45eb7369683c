package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/port"
	"resumeanalyzer/internal/repository"
	"resumeanalyzer/internal/repository/sqlite"
)

func newRepo(t *testing.T) (port.AuditRepository, func()) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	return repository.NewAnalysisLogRepo(db), func() { _ = db.Close() }
}

func TestAnalysisLogRepo_CreateAndList(t *testing.T) {
	r, closeDB := newRepo(t)
	defer closeDB()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &domain.LogEntry{
		ID:            uuid.New(),
		RequestID:     "req-1",
		UserID:        "alice",
		Filename:      "a.pdf",
		Mode:          domain.ModeRanking,
		Query:         "Go developer",
		Status:        domain.LogStatusSuccess,
		Source:        "native",
		ResultSummary: `{"score":80}`,
		Timestamp:     base,
	}
	second := &domain.LogEntry{
		RequestID: "req-1",
		UserID:    "alice",
		Filename:  "b.png",
		Mode:      domain.ModeRanking,
		Query:     "Go developer",
		Status:    domain.LogStatusFailed,
		ErrorCode: "EMPTY_DOCUMENT",
		Timestamp: base.Add(time.Second),
	}
	require.NoError(t, r.Create(ctx, first))
	require.NoError(t, r.Create(ctx, second))
	assert.NotEqual(t, uuid.Nil, second.ID)

	entries, total, err := r.ListRecent(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)

	assert.Equal(t, "b.png", entries[0].Filename)
	assert.Equal(t, "EMPTY_DOCUMENT", entries[0].ErrorCode)
	assert.Equal(t, domain.LogStatusFailed, entries[0].Status)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, domain.ModeRanking, entries[1].Mode)
	assert.Equal(t, `{"score":80}`, entries[1].ResultSummary)
	assert.WithinDuration(t, base, entries[1].Timestamp, time.Second)
}

func TestAnalysisLogRepo_Pagination(t *testing.T) {
	r, closeDB := newRepo(t)
	defer closeDB()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Create(ctx, &domain.LogEntry{
			RequestID: "req",
			UserID:    "u",
			Filename:  string(rune('a'+i)) + ".pdf",
			Mode:      domain.ModeSummary,
			Status:    domain.LogStatusSuccess,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, total, err := r.ListRecent(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "d.pdf", entries[0].Filename)
	assert.Equal(t, "c.pdf", entries[1].Filename)
}

func TestAnalysisLogRepo_CreateFailureIsPersistenceError(t *testing.T) {
	r, closeDB := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))
	closeDB()

	err := r.Create(ctx, &domain.LogEntry{Filename: "a.pdf", Mode: domain.ModeSummary, Status: domain.LogStatusSuccess})
	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "analysisLogRepo.Create", perr.Op)
}

func TestAnalysisLogRepo_ListEmpty(t *testing.T) {
	r, closeDB := newRepo(t)
	defer closeDB()

	entries, total, err := r.ListRecent(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
