package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"resumeanalyzer/internal/logger"
)

// PopplerRasterizer renders PDF pages to PNG files with pdftoppm.
type PopplerRasterizer struct {
	runner   Runner
	binary   string
	maxPages int
	log      *zap.Logger
}

// NewPopplerRasterizer returns a Rasterizer. maxPages <= 0 renders every page.
func NewPopplerRasterizer(runner Runner, binary string, maxPages int, log *zap.Logger) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PopplerRasterizer{runner: runner, binary: binary, maxPages: maxPages, log: logger.OrNop(log)}
}

// Rasterize writes pdf to a temp dir and renders it at dpi. The returned
// cleanup removes every file it created and is safe to call on error.
func (p *PopplerRasterizer) Rasterize(ctx context.Context, pdf []byte, dpi int) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "resume-pp-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("rasterize: temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			p.log.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(err))
		}
	}

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, cleanup, fmt.Errorf("rasterize: write input: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if p.maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.maxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := p.runner.Run(ctx, p.binary, args...); err != nil {
		return nil, cleanup, fmt.Errorf("pdftoppm: %w: %s", err, logger.TruncateForLog(string(errb), 512))
	}

	// pdftoppm zero-pads page numbers to a common width, so a lexical sort is page order.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, cleanup, fmt.Errorf("rasterize: glob: %w", err)
	}
	sort.Strings(matches)
	return matches, cleanup, nil
}
