package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"resumeanalyzer/internal/domain"
)

// MockNativeTextReader is a mock implementation of port.NativeTextReader.
type MockNativeTextReader struct {
	mock.Mock
}

func (m *MockNativeTextReader) ReadPages(ctx context.Context, pdf []byte) ([]string, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockRasterizer is a mock implementation of port.Rasterizer.
type MockRasterizer struct {
	mock.Mock
}

func (m *MockRasterizer) Rasterize(ctx context.Context, pdf []byte, dpi int) ([]string, func(), error) {
	args := m.Called(ctx, pdf, dpi)
	var paths []string
	if args.Get(0) != nil {
		paths = args.Get(0).([]string)
	}
	return paths, func() {}, args.Error(1)
}

// MockRecognizer is a mock implementation of port.Recognizer.
type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, imagePath string, languages []string) (string, error) {
	args := m.Called(ctx, imagePath, languages)
	return args.String(0), args.Error(1)
}

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
