package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTextGenerator is a mock implementation of port.TextGenerator.
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockTextGenerator) Model() string {
	return "mock-model"
}
