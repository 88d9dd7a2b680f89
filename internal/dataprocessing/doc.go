// Package dataprocessing turns ERW results workbooks into domain records.
//
// # Architecture
//
// Ingestion is split into three layers:
//
//	WorkbookReader → RawRow → NormalizeSample / NormalizeSummary
//
// WorkbookReader opens the workbook with excelize, picks the results sheet
// ("ERW Results", else the active sheet) and hands every data row, starting
// at the fourth row, to the normalizer as raw cell strings. The normalizer
// maps fixed column positions to Sample fields.
//
// # Coercion
//
// Numeric cells are parsed leniently. Thousands separators are stripped and
// anything that does not parse to a finite number becomes null, so a single
// bad cell never rejects a row. A row is rejected only when it has no sample
// number, or when latitude, longitude and pH are all absent (section headers
// and notes in the sheet look like that).
//
// # Usage
//
//	reader := dataprocessing.NewWorkbookReader(logger)
//	batch, err := reader.ReadFile("calcite_5.xlsx", dataprocessing.BatchContext{
//	    Feedstock: "calcite",
//	    Threshold: 5,
//	})
package dataprocessing
