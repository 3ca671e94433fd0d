// Package sqlite is the single-file store backend built on the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and runs migrations
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ReplaceFileRecords(ctx context.Context, file store.FileRecord, records []trade.Record) (err error) {
	if err := file.Validate(); err != nil {
		return apierrors.NewAppValidationError(err.Error())
	}
	if len(records) == 0 {
		return store.ErrNoRecords
	}
	if file.IngestedAt.IsZero() {
		file.IngestedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apierrors.NewStorageError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM trade_records WHERE file_id IN (SELECT id FROM file_records WHERE file_name = ?)`,
		file.Name); err != nil {
		return apierrors.NewStorageError("delete previous records", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM file_records WHERE file_name = ?`, file.Name); err != nil {
		return apierrors.NewStorageError("delete previous file record", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO file_records (id, file_name, flow, checksum, rows_kept, rows_skipped, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.Name, string(file.Flow), file.Checksum, file.RowsKept, file.RowsSkipped,
		file.IngestedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return apierrors.NewStorageError("insert file record", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_records (
			file_id, flow, year, month, ncm, product, country, uf, fob_usd, net_weight_kg
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apierrors.NewStorageError("prepare insert", err)
	}
	defer stmt.Close()

	for i := range records {
		r := records[i]
		if _, err = stmt.ExecContext(ctx,
			file.ID, string(r.Flow), r.Year, r.Month, r.NCM, r.Product, r.Country, r.UF, r.FOB, r.NetWeight,
		); err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("insert record %d", i), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apierrors.NewStorageError("commit", err)
	}
	return nil
}

func (s *Store) IsFileIngested(ctx context.Context, checksum string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM file_records WHERE checksum = ? LIMIT 1`, checksum).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apierrors.NewStorageError("find file by checksum", err)
	}
	return true, nil
}

func (s *Store) LoadRecords(ctx context.Context, filter trade.Filter) ([]trade.Record, error) {
	where, args := store.WhereClause(filter, store.QuestionMark)
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow, year, month, ncm, product, country, uf, fob_usd, net_weight_kg
		FROM trade_records`+where+`
		ORDER BY rowid`, args...)
	if err != nil {
		return nil, apierrors.NewStorageError("query records", err)
	}
	defer rows.Close()

	var records []trade.Record
	for rows.Next() {
		var (
			r    trade.Record
			flow string
		)
		if err := rows.Scan(&flow, &r.Year, &r.Month, &r.NCM, &r.Product, &r.Country, &r.UF, &r.FOB, &r.NetWeight); err != nil {
			return nil, apierrors.NewStorageError("scan record", err)
		}
		r.Flow = trade.Flow(flow)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apierrors.NewStorageError("iterate records", err)
	}

	return store.PostFilter(records, filter), nil
}

func (s *Store) ListFiles(ctx context.Context) ([]store.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, flow, checksum, rows_kept, rows_skipped, ingested_at
		FROM file_records
		ORDER BY ingested_at DESC, file_name`)
	if err != nil {
		return nil, apierrors.NewStorageError("query files", err)
	}
	defer rows.Close()

	var files []store.FileRecord
	for rows.Next() {
		var (
			f          store.FileRecord
			flow       string
			ingestedAt string
		)
		if err := rows.Scan(&f.ID, &f.Name, &flow, &f.Checksum, &f.RowsKept, &f.RowsSkipped, &ingestedAt); err != nil {
			return nil, apierrors.NewStorageError("scan file record", err)
		}
		f.Flow = trade.Flow(flow)
		if f.IngestedAt, err = time.Parse(time.RFC3339Nano, ingestedAt); err != nil {
			return nil, apierrors.NewStorageError("parse ingested_at", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS file_records (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL UNIQUE,
			flow TEXT NOT NULL,
			checksum TEXT NOT NULL,
			rows_kept INTEGER NOT NULL,
			rows_skipped INTEGER NOT NULL,
			ingested_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_checksum ON file_records (checksum);`,
		`CREATE TABLE IF NOT EXISTS trade_records (
			file_id TEXT NOT NULL REFERENCES file_records (id) ON DELETE CASCADE,
			flow TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
			ncm TEXT NOT NULL,
			product TEXT NOT NULL,
			country TEXT NOT NULL,
			uf TEXT NOT NULL,
			fob_usd REAL NOT NULL CHECK (fob_usd >= 0),
			net_weight_kg REAL NOT NULL CHECK (net_weight_kg >= 0)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_period ON trade_records (flow, year, month);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_file ON trade_records (file_id);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}

	return nil
}
