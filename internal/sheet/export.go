package sheet

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/ujian/internal/model"
)

// ResultsSheet is the sheet name used by WriteResults.
const ResultsSheet = "Hasil_Ujian"

// TimeLayout is how result timestamps are rendered in exported workbooks.
const TimeLayout = "2006-01-02 15:04:05"

// ResultHeaders are the column headers of an exported result listing.
var ResultHeaders = []string{"ID", "Nama", "NIM", "Mata Kuliah", "Skor", "Waktu"}

// WriteResults writes results as a single-sheet workbook. Each column is as
// wide as its longest value plus two characters.
func WriteResults(w io.Writer, results []model.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	widths := make([]int, len(ResultHeaders))
	setRow := func(rowNum int, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
			return err
		}
		for i, v := range values {
			if n := utf8.RuneCountInString(cellText(v)); n > widths[i] {
				widths[i] = n
			}
		}
		return nil
	}

	header := make([]any, len(ResultHeaders))
	for i, h := range ResultHeaders {
		header[i] = h
	}
	if err := setRow(1, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range results {
		row := []any{r.ID, r.Name, r.StudentID, r.Course, r.Score, r.Time.Format(TimeLayout)}
		if err := setRow(i+2, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ResultsSheet, col, col, float64(width+2)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
