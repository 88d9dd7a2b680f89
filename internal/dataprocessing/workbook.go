package dataprocessing

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"erwpulse/pkg/contracts/domain"
)

// Sheet layout of an ERW results workbook.
const (
	ResultsSheet = "ERW Results"
	SummarySheet = "Summary Statistics"
	// FirstDataRow is the zero-based index of the first row after the headers.
	FirstDataRow = 3
)

var (
	// ErrUnreadableWorkbook means the content is not an xlsx workbook.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	// ErrNoSheets means the workbook has no worksheet to read.
	ErrNoSheets = errors.New("workbook has no worksheets")
)

// Batch is everything extracted from one workbook.
type Batch struct {
	Context     BatchContext
	Sheet       string
	Samples     []domain.Sample
	Summaries   []domain.SummaryRecord
	SkippedRows int
}

// WorkbookReader extracts samples and summaries from results workbooks.
type WorkbookReader struct {
	logger *slog.Logger
}

// NewWorkbookReader creates a reader that logs through logger.
func NewWorkbookReader(logger *slog.Logger) *WorkbookReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookReader{logger: logger.With("component", "workbook_reader")}
}

// ReadFile opens the workbook at path.
func (w *WorkbookReader) ReadFile(path string, batch BatchContext) (*Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()
	return w.read(f, batch)
}

// Read parses workbook content from r.
func (w *WorkbookReader) Read(r io.Reader, batch BatchContext) (*Batch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()
	return w.read(f, batch)
}

func (w *WorkbookReader) read(f *excelize.File, batch BatchContext) (*Batch, error) {
	batch = batch.Normalized()
	sheet := resultsSheet(f)
	if sheet == "" {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	out := &Batch{Context: batch, Sheet: sheet, Samples: []domain.Sample{}, Summaries: []domain.SummaryRecord{}}
	for i := FirstDataRow; i < len(rows); i++ {
		s, ok := NormalizeSample(RawRow(rows[i]), batch)
		if !ok {
			out.SkippedRows++
			continue
		}
		out.Samples = append(out.Samples, s)
	}

	if hasSheet(f, SummarySheet) {
		srows, err := f.GetRows(SummarySheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", SummarySheet, err)
		}
		for i := FirstDataRow; i < len(srows); i++ {
			if rec, ok := NormalizeSummary(RawRow(srows[i]), batch); ok {
				out.Summaries = append(out.Summaries, rec)
			}
		}
	}

	w.logger.Info("workbook parsed",
		slog.String("sheet", sheet),
		slog.String("feedstock", batch.Feedstock),
		slog.Int("omega_threshold", batch.Threshold),
		slog.Int("samples", len(out.Samples)),
		slog.Int("summaries", len(out.Summaries)),
		slog.Int("skipped_rows", out.SkippedRows))
	return out, nil
}

// resultsSheet prefers the named results sheet, then the active one.
func resultsSheet(f *excelize.File) string {
	if hasSheet(f, ResultsSheet) {
		return ResultsSheet
	}
	if name := f.GetSheetName(f.GetActiveSheetIndex()); name != "" {
		return name
	}
	if list := f.GetSheetList(); len(list) > 0 {
		return list[0]
	}
	return ""
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}
