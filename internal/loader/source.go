package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// Source produces the dataset served by the dashboard
type Source interface {
	Load(ctx context.Context) (*trade.Table, LoadReport, error)
	Name() string
}

// RecordReader is the part of a store a StoreSource needs
type RecordReader interface {
	LoadRecords(ctx context.Context, filter trade.Filter) ([]trade.Record, error)
}

// maxParallelFiles bounds how many files are parsed at once
const maxParallelFiles = 4

// FileSource loads export and import files from disk
type FileSource struct {
	ExportFiles []string
	ImportFiles []string
	// Dir is scanned on every load; its files follow the configured ones.
	Dir     string
	Options Options
	Logger  *slog.Logger
}

// NewFileSource creates a file source from the data config
func NewFileSource(cfg config.DataConfig, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		ExportFiles: cfg.ExportFiles,
		ImportFiles: cfg.ImportFiles,
		Dir:         cfg.Dir,
		Options:     OptionsFromConfig(cfg),
		Logger:      logger.With("component", "file_source"),
	}
}

// Name implements Source
func (s *FileSource) Name() string {
	return config.SourceFile
}

type fileJob struct {
	path string
	flow trade.Flow
}

// Load parses every file concurrently and merges the results. Export files
// come before import files in the resulting table, each group in
// configuration order. Any file error aborts the whole load.
func (s *FileSource) Load(ctx context.Context) (*trade.Table, LoadReport, error) {
	start := time.Now()
	report := LoadReport{Source: s.Name(), LoadedAt: start}

	jobs := make([]fileJob, 0, len(s.ExportFiles)+len(s.ImportFiles))
	for _, p := range s.ExportFiles {
		jobs = append(jobs, fileJob{path: p, flow: trade.FlowExport})
	}
	for _, p := range s.ImportFiles {
		jobs = append(jobs, fileJob{path: p, flow: trade.FlowImport})
	}
	if s.Dir != "" {
		found, ignored, err := DiscoverFiles(s.Dir)
		if err != nil {
			return nil, report, fmt.Errorf("file source: %w", err)
		}
		for _, path := range ignored {
			s.logger().Warn("file ignored, flow not recognized in name", slog.String("path", path))
		}
		for _, f := range found {
			jobs = append(jobs, fileJob{path: f.Path, flow: f.Flow})
		}
	}
	if len(jobs) == 0 {
		return nil, report, fmt.Errorf("file source: no export or import files configured")
	}

	tables := make([]*trade.Table, len(jobs))
	reports := make([]FileReport, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			opts := s.Options
			opts.DefaultFlow = job.flow

			records, fr, err := ParseFile(gctx, job.path, opts)
			if err != nil {
				return fmt.Errorf("load %s: %w", job.path, err)
			}
			tables[i] = trade.NewTable(records)
			reports[i] = fr

			s.logger().Debug("file parsed",
				slog.String("path", job.path),
				slog.String("flow", string(job.flow)),
				slog.Int("rows_kept", fr.RowsKept),
				slog.Int("rows_skipped", fr.RowsSkipped))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}

	for _, fr := range reports {
		report.add(fr)
	}

	report.Duration = time.Since(start)
	return trade.Concat(tables...), report, nil
}

func (s *FileSource) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// StoreSource loads the dataset from a persisted store
type StoreSource struct {
	Store  RecordReader
	Filter trade.Filter
	name   string
}

// NewStoreSource wraps a store. name is reported by Name, typically
// config.SourceSQLite or config.SourcePostgres.
func NewStoreSource(store RecordReader, name string) *StoreSource {
	return &StoreSource{Store: store, name: name}
}

// Name implements Source
func (s *StoreSource) Name() string {
	if s.name == "" {
		return "store"
	}
	return s.name
}

// Load reads every record matching the source filter
func (s *StoreSource) Load(ctx context.Context) (*trade.Table, LoadReport, error) {
	start := time.Now()
	report := LoadReport{Source: s.Name(), LoadedAt: start}

	records, err := s.Store.LoadRecords(ctx, s.Filter)
	if err != nil {
		return nil, report, fmt.Errorf("%s source: %w", s.Name(), err)
	}

	report.RowsRead = len(records)
	report.RowsKept = len(records)
	report.Duration = time.Since(start)
	return trade.NewTable(records), report, nil
}
