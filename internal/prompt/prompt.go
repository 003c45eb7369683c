// Package prompt builds the model prompts for ranking and summary mode and
// declares the JSON contract each response must follow.
package prompt

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"resumeanalyzer/internal/domain"
)

var (
	//go:embed templates/ranking.md
	rankingTemplate string
	//go:embed templates/summary.md
	summaryTemplate string
	//go:embed templates/repair.md
	repairTemplate string
)

// Engine renders prompts. Résumé text longer than maxTextChars runes is truncated.
type Engine struct {
	maxTextChars int
}

// NewEngine returns an Engine. maxTextChars <= 0 disables truncation.
func NewEngine(maxTextChars int) *Engine {
	return &Engine{maxTextChars: maxTextChars}
}

// Build renders the prompt for req. The mode must agree with the query.
func (e *Engine) Build(req domain.EvaluationRequest) (string, error) {
	if domain.ModeForQuery(req.Query) != req.Mode {
		return "", fmt.Errorf("prompt: mode %q does not match query %q", req.Mode, req.Query)
	}

	text := e.truncate(req.Text)
	switch req.Mode {
	case domain.ModeRanking:
		return strings.NewReplacer(
			"{{QUERY}}", strings.TrimSpace(req.Query),
			"{{FILENAME}}", req.Filename,
			"{{RESUME}}", text,
			"{{SCORE_MIN}}", strconv.Itoa(ScoreMin),
			"{{SCORE_MAX}}", strconv.Itoa(ScoreMax),
			"{{SCHEMA}}", RankingSchema,
		).Replace(rankingTemplate), nil
	case domain.ModeSummary:
		return strings.NewReplacer(
			"{{FILENAME}}", req.Filename,
			"{{RESUME}}", text,
			"{{SCHEMA}}", SummarySchema,
		).Replace(summaryTemplate), nil
	default:
		return "", fmt.Errorf("prompt: unknown mode %q", req.Mode)
	}
}

// Repair appends the correction instruction for a rejected response to base.
// The result depends only on its arguments.
func Repair(base string, code domain.LLMCode, reason string) string {
	return base + strings.NewReplacer(
		"{{CODE}}", string(code),
		"{{REASON}}", reason,
	).Replace(repairTemplate)
}

func (e *Engine) truncate(text string) string {
	if e.maxTextChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= e.maxTextChars {
		return text
	}
	return string(runes[:e.maxTextChars])
}
