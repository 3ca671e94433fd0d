// Package exporter writes dashboard views as downloadable files.
//
// CSVWriter produces UTF-8 CSV with an optional BOM so Excel detects the
// encoding, either in one call or streamed row by row for large tables.
// The row builders in rows.go turn records, grouped rankings and
// year-over-year tables into CSV rows with stable headers.
//
// Workbook builds an XLSX report with excelize: a summary sheet, a top-N
// ranking sheet and a year-over-year comparison sheet.
//
// Example usage:
//
//	wb := exporter.NewWorkbook()
//	defer wb.Close()
//	if err := wb.AddSummary(meta, summary); err != nil { ... }
//	if err := wb.AddTop("Top produtos", groups); err != nil { ... }
//	if err := wb.AddYoY(result); err != nil { ... }
//	err := wb.Write(w)
package exporter
