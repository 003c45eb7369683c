package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawDocument is an uploaded file as received at the ingestion boundary.
type RawDocument struct {
	Filename     string
	Data         []byte
	DeclaredMIME string
}

// PageText is the text recovered from one page, in document order.
type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Usable bool   `json:"usable"`
}

// ExtractionResult is the best available text for a document.
type ExtractionResult struct {
	Text         string     `json:"text"`
	Source       Source     `json:"source"`
	Pages        []PageText `json:"pages"`
	QualityScore float64    `json:"quality_score"`
}

// EvaluationRequest is the input to one model evaluation.
type EvaluationRequest struct {
	Text     string
	Mode     Mode
	Query    string
	Filename string
}

// ModeForQuery returns RANKING iff query carries non-whitespace text.
func ModeForQuery(query string) Mode {
	if strings.TrimSpace(query) != "" {
		return ModeRanking
	}
	return ModeSummary
}

// Summary is the fixed set of résumé attributes extracted in summary mode.
type Summary struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Technologies []string `json:"technologies"`
	Experiences  []string `json:"experiences"`
	Education    []string `json:"education"`
	Summary      string   `json:"summary"`
}

// RankingEntry is a résumé scored against a query.
type RankingEntry struct {
	Filename      string  `json:"file_name"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	Name          string  `json:"name,omitempty"`
	Title         string  `json:"title,omitempty"`
}

// EvaluationResult holds exactly one of Summary or Ranking, selected by Mode.
type EvaluationResult struct {
	Mode    Mode
	Summary *Summary
	Ranking *RankingEntry
}

// BatchEntry is the slot for one input document in a batch result.
type BatchEntry struct {
	Index      int
	Filename   string
	State      DocumentState
	Source     Source
	Result     *EvaluationResult
	Err        error
	ArchiveKey string
}

// Failed reports whether the entry ended in a failure state.
func (e *BatchEntry) Failed() bool {
	return e.Err != nil || !e.State.Succeeded()
}

// BatchResult is the ordered outcome of one analysis call.
type BatchResult struct {
	RequestID string
	UserID    string
	Mode      Mode
	Query     string
	Entries   []BatchEntry
}

// Ranks returns, per entry, its 1-based position by descending score among
// successful ranking entries. Ties keep input order; failed entries get 0.
func (b *BatchResult) Ranks() []int {
	ranks := make([]int, len(b.Entries))
	if b.Mode != ModeRanking {
		return ranks
	}
	idx := make([]int, 0, len(b.Entries))
	for i := range b.Entries {
		e := &b.Entries[i]
		if !e.Failed() && e.Result != nil && e.Result.Ranking != nil {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, c int) bool {
		return b.Entries[idx[a]].Result.Ranking.Score > b.Entries[idx[c]].Result.Ranking.Score
	})
	for pos, i := range idx {
		ranks[i] = pos + 1
	}
	return ranks
}

// AnalysisInput is one batch submitted for analysis.
type AnalysisInput struct {
	RequestID string
	UserID    string
	Query     string
	Documents []RawDocument
}

// LogEntry is the audit record written once per document.
type LogEntry struct {
	ID            uuid.UUID `db:"id" json:"id"`
	RequestID     string    `db:"request_id" json:"request_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Filename      string    `db:"file_name" json:"file_name"`
	Mode          Mode      `db:"mode" json:"mode"`
	Query         string    `db:"query" json:"query,omitempty"`
	Status        LogStatus `db:"status" json:"status"`
	ErrorCode     string    `db:"error_code" json:"error_code,omitempty"`
	Source        string    `db:"source" json:"source,omitempty"`
	ResultSummary string    `db:"result_summary" json:"result_summary"`
	ArchiveKey    string    `db:"archive_key" json:"archive_key,omitempty"`
	Timestamp     time.Time `db:"created_at" json:"timestamp"`
}
