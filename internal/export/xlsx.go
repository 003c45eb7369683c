package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"resumeanalyzer/internal/domain"
)

var rankingWidths = []float64{6, 28, 18, 8, 8, 24, 28, 60, 20, 40}

var summaryWidths = []float64{28, 18, 8, 24, 28, 40, 60, 40, 60, 20, 40}

// SheetName returns the worksheet title used for mode.
func SheetName(mode domain.Mode) string {
	if mode == domain.ModeRanking {
		return "Ranking"
	}
	return "Summaries"
}

// WriteXLSX writes batch as a single-sheet workbook. Rank and score cells
// are numeric.
func WriteXLSX(w io.Writer, batch *domain.BatchResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(batch.Mode)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if err := writeSheet(f, sheet, batch); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

// writeSheet fills sheet with the header, the rows and the layout. It stops
// at the first excelize error.
func writeSheet(f *excelize.File, sheet string, batch *domain.BatchResult) error {
	columns := Columns(batch.Mode)
	for i, h := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("header %s: %w", cell, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	end, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	numeric := map[int]bool{}
	widths := summaryWidths
	if batch.Mode == domain.ModeRanking {
		numeric = map[int]bool{0: true, 4: true}
		widths = rankingWidths
	}

	for r, row := range Rows(batch) {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			var value any = v
			if numeric[c] && v != "" {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					value = n
				}
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("column %s width: %w", col, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}
