package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// ctxCheckEvery is how many rows are parsed between context checks
const ctxCheckEvery = 5000

// ParseCSV reads delimited trade data from r. The first row is the header.
// Invalid rows are skipped and reported; the error is non-nil only when the
// header is unusable, the input cannot be read or ctx is done.
func ParseCSV(ctx context.Context, r io.Reader, opts Options) ([]trade.Record, FileReport, error) {
	opts = opts.withDefaults()
	report := newFileReport("", opts.MaxSampleErrors)

	if opts.Encoding == config.EncodingLatin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, apierrors.NewParsingError("empty file", err)
		}
		return nil, report, apierrors.NewParsingError("failed to read header", err)
	}
	parser, err := newRowParser(append([]string(nil), header...), opts)
	if err != nil {
		return nil, report, err
	}

	var records []trade.Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			if reason, detail, ok := rowReadError(err); ok {
				report.RowsRead++
				report.skip(line, reason, detail)
				continue
			}
			return nil, report, apierrors.NewParsingError(fmt.Sprintf("failed to read line %d", line), err)
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

	report.RowsKept = len(records)
	return records, report, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// rowReadError classifies a csv read error. ok is false when the error
// aborts the file instead of skipping one row.
func rowReadError(err error) (reason, detail string, ok bool) {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return SkipMalformedRow, parseErr.Err.Error(), true
	}
	return "", "", false
}
