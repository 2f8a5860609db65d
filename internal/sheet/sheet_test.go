package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/ujian/internal/model"
)

// workbook builds an xlsx file whose first sheet holds rows.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return &buf
}

var header = []any{"matkul", "pertanyaan", "opsi_1", "opsi_2", "opsi_3", "opsi_4", "jawaban"}

func TestParseQuestions(t *testing.T) {
	buf := workbook(t, [][]any{
		header,
		{"AI", "Apa itu neuron?", "sel", "batu", "air", "api", "A"},
		{},
		{"Jaringan", "Port HTTP?", "21", "22", "80", "443", " c "},
	})

	qs, err := ParseQuestions(buf)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	want := model.Question{Course: "Jaringan", Prompt: "Port HTTP?", Option1: "21", Option2: "22", Option3: "80", Option4: "443", Answer: "C"}
	if qs[1] != want {
		t.Errorf("question = %+v, want %+v", qs[1], want)
	}
}

func TestParseQuestionsEnglishHeaders(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Correct_Label", "Course", "Prompt", "Option_1", "Option_2", "Option_3", "Option_4"},
		{"D", "AI", "2+2?", "1", "2", "3", "4"},
	})

	qs, err := ParseQuestions(buf)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(qs) != 1 || qs[0].Answer != "D" || qs[0].Option4 != "4" || qs[0].Course != "AI" {
		t.Errorf("unexpected questions %+v", qs)
	}
}

func TestParseQuestionsMissingColumn(t *testing.T) {
	buf := workbook(t, [][]any{
		header[:6],
		{"AI", "q", "a", "b", "c", "d"},
	})

	qs, err := ParseQuestions(buf)
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("error = %v, want ErrMissingColumns", err)
	}
	if !strings.Contains(err.Error(), "jawaban") {
		t.Errorf("error %q should name the missing column", err)
	}
	if qs != nil {
		t.Errorf("expected no questions, got %d", len(qs))
	}
}

func TestParseQuestionsInvalidRow(t *testing.T) {
	tests := []struct {
		name string
		row  []any
	}{
		{"bad label", []any{"AI", "q", "a", "b", "c", "d", "E"}},
		{"missing option", []any{"AI", "q", "a", "", "c", "d", "A"}},
		{"missing answer", []any{"AI", "q", "a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := workbook(t, [][]any{
				header,
				{"AI", "ok", "a", "b", "c", "d", "B"},
				tt.row,
			})
			qs, err := ParseQuestions(buf)
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("error = %v, want *RowError", err)
			}
			if rowErr.Row != 3 {
				t.Errorf("row = %d, want 3", rowErr.Row)
			}
			if qs != nil {
				t.Errorf("a bad row must reject the whole file, got %d questions", len(qs))
			}
		})
	}
}

func TestParseQuestionsNotAWorkbook(t *testing.T) {
	if _, err := ParseQuestions(strings.NewReader("matkul,pertanyaan\n")); err == nil {
		t.Error("expected error for non-xlsx input")
	}
}

func TestWriteResults(t *testing.T) {
	results := []model.Result{
		{ID: 7, Name: "Budi Santoso", StudentID: "2201", Course: "Pemrograman", Score: 75, Time: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)},
		{ID: 8, Name: "Sari", StudentID: "2202", Course: "AI", Score: 100.0 / 3, Time: time.Date(2025, 6, 1, 9, 45, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	if err := WriteResults(&buf, results); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != ResultsSheet {
		t.Fatalf("sheets = %v, want [%s]", sheets, ResultsSheet)
	}
	rows, err := f.GetRows(ResultsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], "|") != strings.Join(ResultHeaders, "|") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "Budi Santoso" || rows[1][5] != "2025-06-01 09:30:00" {
		t.Errorf("row 1 = %v", rows[1])
	}

	tests := []struct {
		col  string
		want float64
	}{
		{"A", 4},  // "ID" + 2
		{"B", 14}, // "Budi Santoso" + 2
		{"D", 13}, // "Mata Kuliah" + 2
		{"F", 21}, // timestamp + 2
	}
	for _, tt := range tests {
		got, err := f.GetColWidth(ResultsSheet, tt.col)
		if err != nil {
			t.Fatalf("GetColWidth(%s): %v", tt.col, err)
		}
		if got != tt.want {
			t.Errorf("width of %s = %v, want %v", tt.col, got, tt.want)
		}
	}
}

func TestWriteResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, nil); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(ResultsSheet)
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d rows", len(rows))
	}
}
