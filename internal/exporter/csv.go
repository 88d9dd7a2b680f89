package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"erwpulse/pkg/contracts/domain"
)

// ContentType is the media type of an export.
const ContentType = "text/csv; charset=utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SampleColumns lists exported columns in output order.
var SampleColumns = []domain.Field{
	domain.FieldFeedstock, domain.FieldThreshold, domain.FieldSampleNo,
	domain.FieldRiverType, domain.FieldRegion, domain.FieldState,
	domain.FieldRiverName, domain.FieldSource,
	domain.FieldLatitude, domain.FieldLongitude,
	domain.FieldPH, domain.FieldAlkalinity, "temp_c",
	domain.FieldCa, domain.FieldMg, domain.FieldNa, domain.FieldK,
	"cl", "so4", "no3", "salinity", "ksp",
	domain.FieldHCO3, "co3", domain.FieldCO2Aq, domain.FieldDIC,
	domain.FieldPCO2, "fco2",
	"z_plus", "z_minus", domain.FieldNICB,
	domain.FieldOmegaCalcite, domain.FieldSICalcite, "discharge",
	"j_steps", "k_steps", domain.FieldRockAddition, "omega_flag", domain.FieldSuccessFlag,
	domain.FieldOmegaFinal, "ca_final", "alk_final", "dic_final", "ph_final", "pco2_final",
	"discharge_ms", "cdr_mol_s", domain.FieldCDRTYr, "cdr_kt_yr",
}

// Options configures an export.
type Options struct {
	BOM bool // prefix a UTF-8 byte order mark for spreadsheet tools
}

// SampleWriter streams samples as CSV rows.
type SampleWriter struct {
	writer *csv.Writer
	record []string
	count  int
}

// NewSampleWriter writes the optional BOM and the header row to w.
func NewSampleWriter(w io.Writer, opts Options) (*SampleWriter, error) {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	sw := &SampleWriter{
		writer: csv.NewWriter(w),
		record: make([]string, len(SampleColumns)),
	}
	for i, col := range SampleColumns {
		sw.record[i] = string(col)
	}
	if err := sw.writer.Write(sw.record); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	return sw, nil
}

// Write appends one sample row.
func (sw *SampleWriter) Write(s *domain.Sample) error {
	for i, col := range SampleColumns {
		sw.record[i] = Cell(s, col)
	}
	if err := sw.writer.Write(sw.record); err != nil {
		return fmt.Errorf("failed to write record %d: %w", sw.count, err)
	}
	sw.count++
	return nil
}

// Flush writes buffered rows and reports any earlier write error.
func (sw *SampleWriter) Flush() error {
	sw.writer.Flush()
	return sw.writer.Error()
}

// Count returns the number of sample rows written.
func (sw *SampleWriter) Count() int {
	return sw.count
}

// WriteSamples exports samples to w and returns the number of rows written.
func WriteSamples(w io.Writer, samples []domain.Sample, opts Options) (int, error) {
	sw, err := NewSampleWriter(w, opts)
	if err != nil {
		return 0, err
	}
	for i := range samples {
		if err := sw.Write(&samples[i]); err != nil {
			return sw.Count(), err
		}
	}
	return sw.Count(), sw.Flush()
}

// Cell formats one field of s. Absent and unknown fields are empty.
func Cell(s *domain.Sample, field domain.Field) string {
	if field == domain.FieldThreshold {
		return strconv.Itoa(s.SaturationThreshold)
	}
	if text, ok := s.Text(field); ok {
		return text
	}
	if v, ok := s.Number(field); ok && v.Valid {
		return strconv.FormatFloat(v.Value, 'f', -1, 64)
	}
	return ""
}
