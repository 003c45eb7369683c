// Package extraction turns uploaded résumés into text, preferring the
// embedded PDF text layer and falling back to rasterize-and-OCR.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"resumeanalyzer/internal/classifier"
	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/logger"
	"resumeanalyzer/internal/port"
)

// Pipeline implements port.TextExtractor.
type Pipeline struct {
	cfg    config.ExtractionConfig
	native port.NativeTextReader
	raster port.Rasterizer
	ocr    port.Recognizer
	log    *zap.Logger
}

// NewPipeline wires the native reader and the OCR collaborators.
func NewPipeline(cfg config.ExtractionConfig, native port.NativeTextReader, raster port.Rasterizer, ocr port.Recognizer, log *zap.Logger) *Pipeline {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Pipeline{cfg: cfg, native: native, raster: raster, ocr: ocr, log: logger.OrNop(log)}
}

// Extract returns the best available text for doc.
func (p *Pipeline) Extract(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error) {
	kind, err := classifier.Classify(doc.Filename, doc.Data)
	if err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, domain.NewExtractionError(domain.ExtractionCorruptFile, errors.New("file is empty"))
	}

	switch kind {
	case domain.FileKindPDF:
		return p.extractPDF(ctx, doc)
	case domain.FileKindImage:
		return p.ocrImage(ctx, doc)
	default:
		return nil, domain.NewExtractionError(domain.ExtractionUnsupportedFormat, fmt.Errorf("no strategy for %s", kind))
	}
}

func (p *Pipeline) extractPDF(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error) {
	log := p.log.With(zap.String("file", doc.Filename))

	raw, err := p.native.ReadPages(ctx, doc.Data)
	switch {
	case err == nil:
		pages := buildPages(raw, p.cfg.MinPageChars)
		score := usableRatio(pages)
		if score > 0 && score >= p.cfg.QualityThreshold {
			log.Debug("native text accepted", zap.Int("pages", len(pages)), zap.Float64("quality", score))
			return &domain.ExtractionResult{
				Text:         joinPages(pages),
				Source:       domain.SourceNative,
				Pages:        pages,
				QualityScore: score,
			}, nil
		}
		log.Info("native text below quality threshold, using OCR",
			zap.Float64("quality", score), zap.Float64("threshold", p.cfg.QualityThreshold))
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		var extErr *domain.ExtractionError
		if errors.As(err, &extErr) {
			return nil, err
		}
		log.Warn("native extraction failed, using OCR", zap.Error(err))
	}

	return p.ocrPDF(ctx, doc)
}

func (p *Pipeline) ocrPDF(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error) {
	paths, cleanup, err := p.raster.Rasterize(ctx, doc.Data, p.cfg.DPI)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewExtractionError(domain.ExtractionCorruptFile, err)
	}
	if len(paths) == 0 {
		return nil, domain.NewExtractionError(domain.ExtractionNoPages, errors.New("rasterizer produced no pages"))
	}
	return p.recognizePages(ctx, doc.Filename, paths)
}

func (p *Pipeline) ocrImage(ctx context.Context, doc domain.RawDocument) (*domain.ExtractionResult, error) {
	tmpDir, err := os.MkdirTemp("", "resume-img-*")
	if err != nil {
		return nil, fmt.Errorf("ocrImage: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if ext == "" {
		ext = ".img"
	}
	path := filepath.Join(tmpDir, "page-1"+ext)
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		return nil, fmt.Errorf("ocrImage: write: %w", err)
	}
	return p.recognizePages(ctx, doc.Filename, []string{path})
}

// recognizePages OCRs every page image in order. A page that fails to
// recognise contributes empty text; only an all-empty document fails.
func (p *Pipeline) recognizePages(ctx context.Context, filename string, paths []string) (*domain.ExtractionResult, error) {
	raw := make([]string, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := p.ocr.Recognize(ctx, path, p.cfg.OCRLanguages)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.log.Warn("ocr failed for page",
				zap.String("file", filename), zap.Int("page", i+1), zap.Error(err))
			continue
		}
		raw[i] = text
	}

	pages := buildPages(raw, p.cfg.MinPageChars)
	if allEmpty(pages) {
		return nil, domain.NewExtractionError(domain.ExtractionEmptyDocument,
			fmt.Errorf("ocr produced no text on %d page(s)", len(pages)))
	}

	return &domain.ExtractionResult{
		Text:         joinPages(pages),
		Source:       domain.SourceOCR,
		Pages:        pages,
		QualityScore: usableRatio(pages),
	}, nil
}
