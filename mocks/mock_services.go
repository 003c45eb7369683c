package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/service"
)

// MockAnalysisService is a mock implementation of service.AnalysisService.
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, input domain.AnalysisInput) (*domain.BatchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

// MockEvaluationService is a mock implementation of service.EvaluationService.
type MockEvaluationService struct {
	mock.Mock
}

func (m *MockEvaluationService) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EvaluationResult), args.Error(1)
}

// MockTokenService is a mock implementation of service.TokenService.
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueToken(userID string, ttl time.Duration) (string, error) {
	args := m.Called(userID, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

var (
	_ service.AnalysisService   = (*MockAnalysisService)(nil)
	_ service.EvaluationService = (*MockEvaluationService)(nil)
	_ service.TokenService      = (*MockTokenService)(nil)
)
