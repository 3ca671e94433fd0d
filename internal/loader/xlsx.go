package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// ParseXLSX reads trade data from a workbook sheet. Options.Sheet selects the
// sheet; the first sheet is used when it is empty. Encoding and Delimiter are
// ignored.
func ParseXLSX(ctx context.Context, path string, opts Options) ([]trade.Record, FileReport, error) {
	opts = opts.withDefaults()
	report := newFileReport(path, opts.MaxSampleErrors)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, report, apierrors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, report, apierrors.NewParsingError(fmt.Sprintf("sheet %q not found", sheet), err).WithContext("path", path)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, report, apierrors.NewParsingError("failed to read sheet", err).WithContext("sheet", sheet)
	}
	defer rows.Close()

	var (
		parser  *rowParser
		records []trade.Record
		line    int
	)
	for rows.Next() {
		line++
		row, err := rows.Columns()
		if err != nil {
			return nil, report, apierrors.NewParsingError(fmt.Sprintf("failed to read row %d", line), err)
		}
		if parser == nil {
			if isBlank(row) {
				continue
			}
			if parser, err = newRowParser(row, opts); err != nil {
				return nil, report, err
			}
			continue
		}
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
		}
		if isBlank(row) {
			continue
		}

		report.RowsRead++
		rec, reason, detail := parser.parse(row)
		if reason != "" {
			report.skip(line, reason, detail)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, report, apierrors.NewParsingError("failed to iterate rows", err)
	}
	if parser == nil {
		return nil, report, apierrors.NewParsingError("empty sheet", nil).WithContext("sheet", sheet)
	}

	report.RowsKept = len(records)
	return records, report, nil
}

// ParseFile picks the CSV or XLSX parser by extension and fills the file's
// path and checksum into the report.
func ParseFile(ctx context.Context, path string, opts Options) ([]trade.Record, FileReport, error) {
	var (
		records []trade.Record
		report  FileReport
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, report, err = ParseXLSX(ctx, path, opts)
	case ".csv", ".txt":
		file, openErr := os.Open(path)
		if openErr != nil {
			return nil, FileReport{Path: path}, apierrors.NewParsingError("failed to open file", openErr).WithContext("path", path)
		}
		records, report, err = ParseCSV(ctx, file, opts)
		file.Close()
	default:
		return nil, FileReport{Path: path}, apierrors.NewParsingError(
			fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil).WithContext("path", path)
	}

	report.Path = path
	if err != nil {
		return nil, report, err
	}

	sum, err := FileChecksum(path)
	if err != nil {
		return nil, report, apierrors.NewParsingError("failed to checksum file", err)
	}
	report.Checksum = sum
	return records, report, nil
}
