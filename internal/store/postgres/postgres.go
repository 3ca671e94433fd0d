// Package postgres is the shared-database store backend. It uses a pgx
// connection pool and bulk loads records with the COPY protocol.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

const recordsTable = "trade_records"

// recordColumns must match the COPY row layout in copyRows
var recordColumns = []string{
	"file_id", "flow", "year", "month", "ncm", "product", "country", "uf", "fob_usd", "net_weight_kg",
}

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New connects to connStr and creates the schema if needed
func New(ctx context.Context, connStr string, logger *slog.Logger) (*Store, error) {
	if connStr == "" {
		return nil, fmt.Errorf("postgres: connection string is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	s := &Store{pool: pool, logger: logger.With("component", "postgres_store")}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS file_records (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL UNIQUE,
			flow VARCHAR(16) NOT NULL,
			checksum VARCHAR(64) NOT NULL,
			rows_kept INTEGER NOT NULL,
			rows_skipped INTEGER NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_checksum ON file_records (checksum);`,
		`CREATE TABLE IF NOT EXISTS trade_records (
			id BIGSERIAL PRIMARY KEY,
			file_id TEXT NOT NULL REFERENCES file_records (id) ON DELETE CASCADE,
			flow VARCHAR(16) NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
			ncm CHAR(8) NOT NULL,
			product TEXT NOT NULL,
			country TEXT NOT NULL,
			uf VARCHAR(2) NOT NULL,
			fob_usd DOUBLE PRECISION NOT NULL CHECK (fob_usd >= 0),
			net_weight_kg DOUBLE PRECISION NOT NULL CHECK (net_weight_kg >= 0)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_period ON trade_records (flow, year, month);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_file ON trade_records (file_id);`,
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	return nil
}

// ReplaceFileRecords deletes the previous version of the file (its records
// cascade) and copies the new records in one transaction.
func (s *Store) ReplaceFileRecords(ctx context.Context, file store.FileRecord, records []trade.Record) error {
	if err := file.Validate(); err != nil {
		return apierrors.NewAppValidationError(err.Error())
	}
	if len(records) == 0 {
		return store.ErrNoRecords
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apierrors.NewStorageError("begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("rollback failed", slog.String("error", rbErr.Error()))
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM file_records WHERE file_name = $1`, file.Name); err != nil {
		return apierrors.NewStorageError("delete previous file record", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO file_records (id, file_name, flow, checksum, rows_kept, rows_skipped, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		file.ID, file.Name, string(file.Flow), file.Checksum, file.RowsKept, file.RowsSkipped, nullTime(file),
	); err != nil {
		return apierrors.NewStorageError("insert file record", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{recordsTable}, recordColumns, copyRows(file.ID, records))
	if err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("copy records into %s", recordsTable), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apierrors.NewStorageError("commit", err)
	}

	s.logger.Info("file records replaced",
		slog.String("file", file.Name),
		slog.Int64("rows", copied))
	return nil
}

func nullTime(file store.FileRecord) any {
	if file.IngestedAt.IsZero() {
		return nil
	}
	return file.IngestedAt.UTC()
}

func copyRows(fileID string, records []trade.Record) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{
			fileID, string(r.Flow), int32(r.Year), int32(r.Month), r.NCM, r.Product, r.Country, r.UF, r.FOB, r.NetWeight,
		}, nil
	})
}

func (s *Store) IsFileIngested(ctx context.Context, checksum string) (bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM file_records WHERE checksum = $1 LIMIT 1`, checksum).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apierrors.NewStorageError("find file by checksum", err)
	}
	return true, nil
}

func (s *Store) LoadRecords(ctx context.Context, filter trade.Filter) ([]trade.Record, error) {
	where, args := store.WhereClause(filter, store.Dollar)
	rows, err := s.pool.Query(ctx, `
		SELECT flow, year, month, ncm, product, country, uf, fob_usd, net_weight_kg
		FROM trade_records`+where+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, apierrors.NewStorageError("query records", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (trade.Record, error) {
		var (
			r           trade.Record
			flow        string
			year, month int32
		)
		err := row.Scan(&flow, &year, &month, &r.NCM, &r.Product, &r.Country, &r.UF, &r.FOB, &r.NetWeight)
		r.Flow = trade.Flow(flow)
		r.Year, r.Month = int(year), int(month)
		return r, err
	})
	if err != nil {
		return nil, apierrors.NewStorageError("scan records", err)
	}

	return store.PostFilter(records, filter), nil
}

func (s *Store) ListFiles(ctx context.Context) ([]store.FileRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, flow, checksum, rows_kept, rows_skipped, ingested_at
		FROM file_records
		ORDER BY ingested_at DESC, file_name`)
	if err != nil {
		return nil, apierrors.NewStorageError("query files", err)
	}

	files, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.FileRecord, error) {
		var (
			f             store.FileRecord
			flow          string
			kept, skipped int32
		)
		err := row.Scan(&f.ID, &f.Name, &flow, &f.Checksum, &kept, &skipped, &f.IngestedAt)
		f.Flow = trade.Flow(flow)
		f.RowsKept, f.RowsSkipped = int(kept), int(skipped)
		return f, err
	})
	if err != nil {
		return nil, apierrors.NewStorageError("scan file records", err)
	}
	return files, nil
}
