package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"resumeanalyzer/internal/logger"
)

// TesseractRecognizer runs the tesseract CLI over one image.
type TesseractRecognizer struct {
	runner      Runner
	binary      string
	tessdataDir string
}

// NewTesseractRecognizer returns a Recognizer backed by tesseract.
func NewTesseractRecognizer(runner Runner, binary, tessdataDir string) *TesseractRecognizer {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractRecognizer{runner: runner, binary: binary, tessdataDir: tessdataDir}
}

var reBoxNoise = regexp.MustCompile(`[|_]{3,}`)

// Recognize returns the text tesseract reads from imagePath using the given
// language set, joined as tesseract expects (eng+por).
func (t *TesseractRecognizer) Recognize(ctx context.Context, imagePath string, languages []string) (string, error) {
	args := []string{imagePath, "stdout"}
	if len(languages) > 0 {
		args = append(args, "-l", strings.Join(languages, "+"))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, logger.TruncateForLog(string(errb), 512))
	}

	// minor cleanup of obvious line noise
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
