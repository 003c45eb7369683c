// Package export renders a BatchResult as CSV or XLSX.
package export

import (
	"sort"
	"strconv"
	"strings"

	"resumeanalyzer/internal/domain"
)

var rankingColumns = []string{
	"Rank",
	"File Name",
	"Status",
	"Source",
	"Score",
	"Name",
	"Title",
	"Justification",
	"Error Code",
	"Error Message",
}

var summaryColumns = []string{
	"File Name",
	"Status",
	"Source",
	"Name",
	"Title",
	"Technologies",
	"Experiences",
	"Education",
	"Summary",
	"Error Code",
	"Error Message",
}

// listSeparator joins list fields inside one cell.
const listSeparator = "; "

// Columns returns the header row for mode.
func Columns(mode domain.Mode) []string {
	if mode == domain.ModeRanking {
		return rankingColumns
	}
	return summaryColumns
}

// Rows converts a batch into string rows matching Columns(batch.Mode).
// Ranking rows are ordered by rank with failures last; summary rows keep
// input order.
func Rows(batch *domain.BatchResult) [][]string {
	rows := make([][]string, 0, len(batch.Entries))
	if batch.Mode != domain.ModeRanking {
		for i := range batch.Entries {
			rows = append(rows, summaryRow(&batch.Entries[i]))
		}
		return rows
	}

	ranks := batch.Ranks()
	order := make([]int, len(batch.Entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := ranks[order[a]], ranks[order[b]]
		if ra == 0 || rb == 0 {
			return ra != 0 && rb == 0
		}
		return ra < rb
	})
	for _, i := range order {
		rows = append(rows, rankingRow(&batch.Entries[i], ranks[i]))
	}
	return rows
}

func rankingRow(e *domain.BatchEntry, rank int) []string {
	row := make([]string, len(rankingColumns))
	row[1] = e.Filename
	row[2] = string(e.State)
	row[3] = string(e.Source)
	if e.Failed() || e.Result == nil || e.Result.Ranking == nil {
		row[8], row[9] = failure(e)
		return row
	}
	r := e.Result.Ranking
	row[0] = strconv.Itoa(rank)
	row[4] = formatScore(r.Score)
	row[5] = r.Name
	row[6] = r.Title
	row[7] = r.Justification
	return row
}

func summaryRow(e *domain.BatchEntry) []string {
	row := make([]string, len(summaryColumns))
	row[0] = e.Filename
	row[1] = string(e.State)
	row[2] = string(e.Source)
	if e.Failed() || e.Result == nil || e.Result.Summary == nil {
		row[9], row[10] = failure(e)
		return row
	}
	s := e.Result.Summary
	row[3] = s.Name
	row[4] = s.Title
	row[5] = strings.Join(s.Technologies, listSeparator)
	row[6] = strings.Join(s.Experiences, listSeparator)
	row[7] = strings.Join(s.Education, listSeparator)
	row[8] = s.Summary
	return row
}

func failure(e *domain.BatchEntry) (string, string) {
	if e.Err == nil {
		return domain.FailureCode(nil), ""
	}
	return domain.FailureCode(e.Err), e.Err.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
