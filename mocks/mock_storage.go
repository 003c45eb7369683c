package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/port"
)

// MockObjectStorage is a mock implementation of port.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, obj port.ResumeObject) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *MockObjectStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

// MockDocumentArchive is a mock implementation of port.DocumentArchive.
type MockDocumentArchive struct {
	mock.Mock
}

func (m *MockDocumentArchive) Archive(ctx context.Context, requestID string, index int, doc domain.RawDocument) (string, error) {
	args := m.Called(ctx, requestID, index, doc)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentArchive) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
