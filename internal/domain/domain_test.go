package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"resumeanalyzer/internal/domain"
)

func TestModeForQuery(t *testing.T) {
	tests := []struct {
		query string
		want  domain.Mode
	}{
		{"", domain.ModeSummary},
		{"   \t\n", domain.ModeSummary},
		{"go developer", domain.ModeRanking},
		{"  x  ", domain.ModeRanking},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.ModeForQuery(tt.query), "query %q", tt.query)
	}
}

func TestDocumentState_Transitions(t *testing.T) {
	allowed := [][2]domain.DocumentState{
		{domain.StatePending, domain.StateExtracting},
		{domain.StateExtracting, domain.StateExtracted},
		{domain.StateExtracting, domain.StateExtractionFailed},
		{domain.StateExtracted, domain.StateEvaluating},
		{domain.StateEvaluating, domain.StateEvaluated},
		{domain.StateEvaluating, domain.StateEvalFailed},
	}
	for _, tr := range allowed {
		assert.True(t, tr[0].CanTransition(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]domain.DocumentState{
		{domain.StatePending, domain.StateEvaluating},
		{domain.StateExtractionFailed, domain.StateEvaluating},
		{domain.StateEvaluated, domain.StateEvaluating},
		{domain.StateEvalFailed, domain.StateEvaluating},
		{domain.StateExtracted, domain.StateEvaluated},
	}
	for _, tr := range denied {
		assert.False(t, tr[0].CanTransition(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	for _, s := range []domain.DocumentState{domain.StateEvaluated, domain.StateExtractionFailed, domain.StateEvalFailed} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, domain.StateEvaluating.IsTerminal())
	assert.True(t, domain.StateEvaluated.Succeeded())
	assert.False(t, domain.StateEvalFailed.Succeeded())
}

func rankingEntry(name string, score float64) domain.BatchEntry {
	return domain.BatchEntry{
		Filename: name,
		State:    domain.StateEvaluated,
		Result: &domain.EvaluationResult{
			Mode:    domain.ModeRanking,
			Ranking: &domain.RankingEntry{Filename: name, Score: score, Justification: "j"},
		},
	}
}

func TestBatchResult_Ranks(t *testing.T) {
	batch := &domain.BatchResult{
		Mode: domain.ModeRanking,
		Entries: []domain.BatchEntry{
			rankingEntry("a.pdf", 50),
			{Filename: "b.pdf", State: domain.StateEvalFailed, Err: domain.NewLLMError(domain.LLMTimeout, nil)},
			rankingEntry("c.pdf", 80),
			rankingEntry("d.pdf", 50),
		},
	}

	// Ties keep input order; the failed entry is unranked.
	assert.Equal(t, []int{2, 0, 1, 3}, batch.Ranks())
}

func TestBatchResult_Ranks_SummaryMode(t *testing.T) {
	batch := &domain.BatchResult{Mode: domain.ModeSummary, Entries: make([]domain.BatchEntry, 2)}
	assert.Equal(t, []int{0, 0}, batch.Ranks())
}

func TestFailureCode(t *testing.T) {
	assert.Equal(t, "CORRUPT_FILE",
		domain.FailureCode(fmt.Errorf("wrap: %w", domain.NewExtractionError(domain.ExtractionCorruptFile, errors.New("x")))))
	assert.Equal(t, "SCHEMA_VIOLATION",
		domain.FailureCode(domain.NewLLMError(domain.LLMSchemaViolation, errors.New("score"))))
	assert.Equal(t, "INTERNAL_ERROR", domain.FailureCode(errors.New("other")))
}

func TestLLMError_Retryable(t *testing.T) {
	retryable := []domain.LLMCode{domain.LLMTimeout, domain.LLMRateLimited, domain.LLMNetworkError, domain.LLMMalformedJSON, domain.LLMSchemaViolation}
	for _, code := range retryable {
		assert.True(t, domain.NewLLMError(code, nil).Retryable(), code)
	}
	assert.False(t, domain.NewLLMError(domain.LLMServiceError, nil).Retryable())
}
