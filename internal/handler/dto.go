package handler

import (
	"resumeanalyzer/internal/domain"
)

// AnalysisResponse is the JSON body of POST /api/v1/analyze. Exactly one of
// Summaries or Ranking is set, matching Mode.
type AnalysisResponse struct {
	RequestID string        `json:"request_id"`
	UserID    string        `json:"user_id"`
	Mode      domain.Mode   `json:"mode"`
	Query     string        `json:"query,omitempty"`
	Summaries []SummaryItem `json:"summaries,omitempty"`
	Ranking   []RankingItem `json:"ranking,omitempty"`
}

// SummaryItem is one document in summary mode.
type SummaryItem struct {
	FileName     string               `json:"file_name"`
	Status       domain.DocumentState `json:"status"`
	Source       domain.Source        `json:"source,omitempty"`
	Name         string               `json:"name,omitempty"`
	Title        string               `json:"title,omitempty"`
	Technologies []string             `json:"technologies,omitempty"`
	Experiences  []string             `json:"experiences,omitempty"`
	Education    []string             `json:"education,omitempty"`
	Summary      string               `json:"summary,omitempty"`
	Error        *APIError            `json:"error,omitempty"`
}

// RankingItem is one document in ranking mode. Items keep input order;
// Rank orders the successful ones by score.
type RankingItem struct {
	Rank          int                  `json:"rank,omitempty"`
	FileName      string               `json:"file_name"`
	Status        domain.DocumentState `json:"status"`
	Source        domain.Source        `json:"source,omitempty"`
	Score         *float64             `json:"score,omitempty"`
	Justification string               `json:"justification,omitempty"`
	Name          string               `json:"name,omitempty"`
	Title         string               `json:"title,omitempty"`
	Error         *APIError            `json:"error,omitempty"`
}

// LogItem is one audit entry in GET /api/v1/logs.
type LogItem struct {
	domain.LogEntry
	ArchiveURL string `json:"archive_url,omitempty"`
}

// NewAnalysisResponse renders batch for the caller.
func NewAnalysisResponse(batch *domain.BatchResult) AnalysisResponse {
	resp := AnalysisResponse{
		RequestID: batch.RequestID,
		UserID:    batch.UserID,
		Mode:      batch.Mode,
		Query:     batch.Query,
	}

	switch batch.Mode {
	case domain.ModeRanking:
		ranks := batch.Ranks()
		resp.Ranking = make([]RankingItem, len(batch.Entries))
		for i := range batch.Entries {
			resp.Ranking[i] = rankingItem(&batch.Entries[i], ranks[i])
		}
	case domain.ModeSummary:
		resp.Summaries = make([]SummaryItem, len(batch.Entries))
		for i := range batch.Entries {
			resp.Summaries[i] = summaryItem(&batch.Entries[i])
		}
	}
	return resp
}

func rankingItem(e *domain.BatchEntry, rank int) RankingItem {
	item := RankingItem{FileName: e.Filename, Status: e.State, Source: e.Source}
	if e.Failed() || e.Result == nil || e.Result.Ranking == nil {
		item.Error = entryError(e)
		return item
	}
	r := e.Result.Ranking
	score := r.Score
	item.Rank = rank
	item.Score = &score
	item.Justification = r.Justification
	item.Name = r.Name
	item.Title = r.Title
	return item
}

func summaryItem(e *domain.BatchEntry) SummaryItem {
	item := SummaryItem{FileName: e.Filename, Status: e.State, Source: e.Source}
	if e.Failed() || e.Result == nil || e.Result.Summary == nil {
		item.Error = entryError(e)
		return item
	}
	s := e.Result.Summary
	item.Name = s.Name
	item.Title = s.Title
	item.Technologies = s.Technologies
	item.Experiences = s.Experiences
	item.Education = s.Education
	item.Summary = s.Summary
	return item
}

func entryError(e *domain.BatchEntry) *APIError {
	if e.Err == nil {
		return &APIError{Code: domain.FailureCode(nil), Message: "document did not finish"}
	}
	return &APIError{Code: domain.FailureCode(e.Err), Message: e.Err.Error()}
}
