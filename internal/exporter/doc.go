// Package exporter writes samples as CSV for download.
//
// SampleWriter streams one header row followed by one row per sample. Columns
// follow SampleColumns, which uses the same keys as the JSON API. Absent
// measurements are written as empty cells. An optional UTF-8 byte order mark
// lets spreadsheet tools detect the encoding.
//
// Example usage:
//
//	sw, err := exporter.NewSampleWriter(w, exporter.Options{BOM: true})
//	if err != nil {
//		return err
//	}
//	for i := range samples {
//		if err := sw.Write(&samples[i]); err != nil {
//			return err
//		}
//	}
//	return sw.Flush()
package exporter
