// Package store persists ingested trade files so the dashboard can start
// from a database instead of re-parsing the raw extracts.
//
// Records are grouped by the file they came from. Re-ingesting a file with
// the same name replaces its previous rows atomically, and the file checksum
// lets the ingest command skip files whose content is already stored.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// ErrNoRecords is returned by ReplaceFileRecords for an empty batch
var ErrNoRecords = errors.New("store: no records to write")

// Store is implemented by the sqlite and postgres backends
type Store interface {
	// ReplaceFileRecords stores records for file, removing whatever was
	// stored before under the same file name.
	ReplaceFileRecords(ctx context.Context, file FileRecord, records []trade.Record) error
	// IsFileIngested reports whether a file with this checksum is stored.
	IsFileIngested(ctx context.Context, checksum string) (bool, error)
	// LoadRecords returns the stored records matching filter.
	LoadRecords(ctx context.Context, filter trade.Filter) ([]trade.Record, error)
	// ListFiles returns the ingested files, most recent first.
	ListFiles(ctx context.Context) ([]FileRecord, error)
	Close() error
}

// FileRecord describes one ingested file
type FileRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Flow        trade.Flow `json:"flow"`
	Checksum    string     `json:"checksum"`
	RowsKept    int        `json:"rows_kept"`
	RowsSkipped int        `json:"rows_skipped"`
	IngestedAt  time.Time  `json:"ingested_at"`
}

// Validate checks the fields every backend requires
func (f FileRecord) Validate() error {
	switch {
	case f.ID == "":
		return fmt.Errorf("store: file record id is required")
	case f.Name == "":
		return fmt.Errorf("store: file record name is required")
	case f.Checksum == "":
		return fmt.Errorf("store: file record checksum is required")
	}
	return nil
}

// Placeholder renders the n-th (1-based) bind parameter of a SQL dialect
type Placeholder func(n int) string

// QuestionMark is the sqlite placeholder style
func QuestionMark(int) string { return "?" }

// Dollar is the postgres placeholder style
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// WhereClause translates the parts of a filter that map to exact column
// matches into a SQL WHERE clause over the trade_records columns. Country
// matching ignores case and accents, so it is left to PostFilter.
func WhereClause(f trade.Filter, ph Placeholder) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if f.Flow != "" {
		conds = append(conds, "flow = "+next(string(f.Flow)))
	}
	if len(f.Years) > 0 {
		conds = append(conds, inList("year", f.Years, next))
	}
	if len(f.Months) > 0 {
		conds = append(conds, inList("month", f.Months, next))
	}
	if len(f.UFs) > 0 {
		ufs := make([]string, len(f.UFs))
		for i, uf := range f.UFs {
			ufs[i] = strings.ToUpper(strings.TrimSpace(uf))
		}
		conds = append(conds, inList("uf", ufs, next))
	}
	if prefix := trade.NormalizePrefix(f.NCMPrefix); prefix != "" {
		conds = append(conds, "ncm LIKE "+next(prefix+"%"))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func inList[T any](col string, values []T, next func(any) string) string {
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = next(v)
	}
	return col + " IN (" + strings.Join(marks, ", ") + ")"
}

// PostFilter applies the filter fields WhereClause does not cover
func PostFilter(records []trade.Record, f trade.Filter) []trade.Record {
	if len(f.Countries) == 0 || len(records) == 0 {
		return records
	}
	return trade.NewTable(records).Filter(trade.Filter{Countries: f.Countries}).Records()
}
