// Package sheet reads question banks from and writes result listings to
// Excel workbooks.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/ujian/internal/model"
)

// ErrMissingColumns is returned when a question workbook lacks required headers.
var ErrMissingColumns = errors.New("missing required columns")

// RequiredColumns are the canonical question headers, in template order.
var RequiredColumns = []string{"matkul", "pertanyaan", "opsi_1", "opsi_2", "opsi_3", "opsi_4", "jawaban"}

// headerAliases maps accepted header spellings to canonical column names.
var headerAliases = map[string]string{
	"matkul":        "matkul",
	"course":        "matkul",
	"pertanyaan":    "pertanyaan",
	"prompt":        "pertanyaan",
	"opsi_1":        "opsi_1",
	"option_1":      "opsi_1",
	"opsi_2":        "opsi_2",
	"option_2":      "opsi_2",
	"opsi_3":        "opsi_3",
	"option_3":      "opsi_3",
	"opsi_4":        "opsi_4",
	"option_4":      "opsi_4",
	"jawaban":       "jawaban",
	"correct_label": "jawaban",
}

// RowError reports an invalid data row. Row is the 1-based sheet row number.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseQuestions reads questions from the first sheet of an xlsx workbook.
// Headers are checked before any row is read, and every row must be valid;
// otherwise nothing is returned.
func ParseQuestions(r io.Reader) ([]model.Question, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMissingColumns)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(RequiredColumns, ", "))
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		if col, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var questions []model.Question
	for n, row := range rows[1:] {
		cell := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		q := model.Question{
			Course:  cell("matkul"),
			Prompt:  cell("pertanyaan"),
			Option1: cell("opsi_1"),
			Option2: cell("opsi_2"),
			Option3: cell("opsi_3"),
			Option4: cell("opsi_4"),
			Answer:  strings.ToUpper(cell("jawaban")),
		}
		if q == (model.Question{}) {
			continue
		}
		if err := q.Validate(); err != nil {
			return nil, &RowError{Row: n + 2, Err: err}
		}
		questions = append(questions, q)
	}
	return questions, nil
}
