package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Row maps a zero-based column index to a cell value.
type Row map[int]any

// Workbook describes a results workbook to generate for a test. Rows are
// written after three header rows, matching exported ERW workbooks.
type Workbook struct {
	// ResultsSheet defaults to "ERW Results".
	ResultsSheet string
	Results      []Row
	// Summaries adds a "Summary Statistics" sheet when non-nil.
	Summaries []Row
}

func (w Workbook) build(t testing.TB) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	name := w.ResultsSheet
	if name == "" {
		name = "ERW Results"
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	writeRows(t, f, name, w.Results)

	if w.Summaries != nil {
		if _, err := f.NewSheet("Summary Statistics"); err != nil {
			t.Fatalf("add summary sheet: %v", err)
		}
		writeRows(t, f, "Summary Statistics", w.Summaries)
	}
	return f
}

func writeRows(t testing.TB, f *excelize.File, sheet string, rows []Row) {
	t.Helper()
	for i := 1; i <= 3; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i)
		f.SetCellValue(sheet, cell, "header")
	}
	for r, row := range rows {
		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+4)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
		}
	}
}

// Bytes renders the workbook as xlsx content.
func (w Workbook) Bytes(t testing.TB) []byte {
	t.Helper()
	f := w.build(t)
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// Save writes the workbook into dir and returns its path.
func (w Workbook) Save(t testing.TB, dir string) string {
	t.Helper()
	f := w.build(t)
	defer f.Close()
	path := filepath.Join(dir, "results.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}
