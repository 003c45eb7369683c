package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"resumeanalyzer/internal/domain"
)

// MockAuditRepo is a mock implementation of port.AuditRepository.
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Create(ctx context.Context, entry *domain.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.LogEntry, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.LogEntry), args.Int(1), args.Error(2)
}

func (m *MockAuditRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
