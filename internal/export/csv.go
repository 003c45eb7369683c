package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"resumeanalyzer/internal/domain"
)

// BOM is the UTF-8 byte order mark, written first so Excel on Windows
// detects the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes batch as a BOM-prefixed CSV with a header row.
func WriteCSV(w io.Writer, batch *domain.BatchResult) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(batch.Mode)); err != nil {
		return fmt.Errorf("export.WriteCSV header: %w", err)
	}
	if err := cw.WriteAll(Rows(batch)); err != nil {
		return fmt.Errorf("export.WriteCSV rows: %w", err)
	}
	return nil
}
