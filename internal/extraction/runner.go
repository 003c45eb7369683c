package extraction

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"resumeanalyzer/internal/logger"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec and logs their outcome.
type ExecRunner struct {
	log *zap.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(log *zap.Logger) *ExecRunner {
	return &ExecRunner{log: logger.OrNop(log)}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.log.Warn("exec failed",
			zap.String("cmd", name),
			zap.String("args", strings.Join(args, " ")),
			zap.Duration("duration", dur),
			zap.Error(err),
			zap.String("stderr", logger.TruncateForLog(errb.String(), 8<<10)),
		)
	} else {
		r.log.Debug("exec ok",
			zap.String("cmd", name),
			zap.Duration("duration", dur),
			zap.Int("stdout_bytes", out.Len()),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}
