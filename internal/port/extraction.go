package port

import (
	"context"

	"resumeanalyzer/internal/domain"
)

// NativeTextReader reads the embedded text layer of a PDF, one string per page.
type NativeTextReader interface {
	ReadPages(ctx context.Context, pdf []byte) ([]string, error)
}

// Rasterizer renders every page of a PDF to an image file and returns the
// paths in page order, plus a cleanup func for the temporary files.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, dpi int) ([]string, func(), error)
}

// Recognizer runs OCR over one page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string, languages []string) (string, error)
}

// TextExtractor produces the best available text for a document.
type TextExtractor interface {
	Extract(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error)
}
