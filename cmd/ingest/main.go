package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/app"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/exporter"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/format"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/infrastructure"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/loader"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

const usage = `usage:
  ingest load -flow export|import [-db sqlite|postgres] [-sqlite path] [-postgres url] [-force] files...
  ingest files [-db sqlite|postgres] [-sqlite path] [-postgres url] [-csv out.csv]
  ingest report -out report.xlsx [-flow export] [-by product] [-n 20] [-base Y] [-compare Y]`

var errUsage = errors.New(usage)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", slog.String("error", err.Error()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = slog.Default()
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	switch args[0] {
	case "load":
		return runLoad(ctx, cfg, args[1:], out, logger)
	case "files":
		return runFiles(ctx, cfg, args[1:], out, logger)
	case "report":
		return runReport(ctx, cfg, args[1:], out, logger)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func runLoad(ctx context.Context, cfg *config.Config, args []string, out io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flow := fs.String("flow", "", "export | import (guessed from the file name when empty)")
	database := databaseFlags(fs, cfg.Data)
	force := fs.Bool("force", false, "re-ingest files whose checksum is already stored")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no input files: %w", errUsage)
	}

	data, err := database()
	if err != nil {
		return err
	}

	var defaultFlow trade.Flow
	if *flow != "" {
		f, err := trade.ParseFlow(*flow)
		if err != nil {
			return err
		}
		defaultFlow = f
	}

	st, err := app.OpenStore(ctx, data, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ing := &ingester{
		store:  st,
		opts:   loader.OptionsFromConfig(data),
		force:  *force,
		batch:  uuid.NewString(),
		logger: logger,
	}
	return ing.ingest(ctx, fs.Args(), defaultFlow, out)
}

// databaseFlags registers -db, -sqlite and -postgres on fs. The returned
// func yields the data config to open once fs is parsed.
func databaseFlags(fs *flag.FlagSet, defaults config.DataConfig) func() (config.DataConfig, error) {
	db := fs.String("db", defaults.Source, "sqlite | postgres")
	sqlitePath := fs.String("sqlite", defaults.SQLitePath, "sqlite database path")
	postgresURL := fs.String("postgres", defaults.PostgresURL, "postgres connection string")

	return func() (config.DataConfig, error) {
		data := defaults
		data.Source = *db
		data.SQLitePath = *sqlitePath
		data.PostgresURL = *postgresURL
		if data.Source != config.SourceSQLite && data.Source != config.SourcePostgres {
			return data, fmt.Errorf("%s needs a sqlite or postgres database, got %q", fs.Name(), data.Source)
		}
		return data, nil
	}
}

type ingester struct {
	store  store.Store
	opts   loader.Options
	force  bool
	batch  string
	logger *slog.Logger
}

func (g *ingester) ingest(ctx context.Context, paths []string, flow trade.Flow, out io.Writer) error {
	var kept, skipped, files int
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		f := flow
		if f == "" {
			guessed, ok := loader.FlowFromFileName(path)
			if !ok {
				return fmt.Errorf("%s: cannot tell export from import, pass -flow", path)
			}
			f = guessed
		}

		report, stored, err := g.ingestFile(ctx, path, f)
		if err != nil {
			return err
		}
		if !stored {
			fmt.Fprintf(out, "%s: already ingested, skipped\n", path)
			continue
		}

		files++
		kept += report.RowsKept
		skipped += report.RowsSkipped
		fmt.Fprintf(out, "%s: %s rows kept, %s skipped (%s)\n",
			path, format.Number(float64(report.RowsKept), 0), format.Number(float64(report.RowsSkipped), 0), f)
		reasons := make([]string, 0, len(report.Skipped))
		for reason := range report.Skipped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(out, "  %s: %d\n", reason, report.Skipped[reason])
		}
	}

	fmt.Fprintf(out, "batch %s: %d files, %s rows kept, %s skipped\n",
		g.batch, files, format.Number(float64(kept), 0), format.Number(float64(skipped), 0))
	return nil
}

// ingestFile parses one file and replaces its stored rows. stored is false
// when the checksum was already ingested and force is off.
func (g *ingester) ingestFile(ctx context.Context, path string, flow trade.Flow) (loader.FileReport, bool, error) {
	if !g.force {
		sum, err := loader.FileChecksum(path)
		if err != nil {
			return loader.FileReport{}, false, err
		}
		ingested, err := g.store.IsFileIngested(ctx, sum)
		if err != nil {
			return loader.FileReport{}, false, err
		}
		if ingested {
			g.logger.Info("file already ingested", slog.String("path", path), slog.String("checksum", sum))
			return loader.FileReport{Path: path, Checksum: sum}, false, nil
		}
	}

	opts := g.opts
	opts.DefaultFlow = flow
	records, report, err := loader.ParseFile(ctx, path, opts)
	if err != nil {
		return report, false, err
	}

	file := store.FileRecord{
		ID:          uuid.NewString(),
		Name:        filepath.Base(path),
		Flow:        flow,
		Checksum:    report.Checksum,
		RowsKept:    report.RowsKept,
		RowsSkipped: report.RowsSkipped,
		IngestedAt:  time.Now().UTC(),
	}
	if err := g.store.ReplaceFileRecords(ctx, file, records); err != nil {
		if errors.Is(err, store.ErrNoRecords) {
			g.logger.Warn("file has no usable rows", slog.String("path", path), slog.Int("rows_skipped", report.RowsSkipped))
			return report, true, nil
		}
		return report, false, err
	}

	g.logger.Info("file ingested",
		slog.String("path", path),
		slog.String("batch", g.batch),
		slog.String("file_id", file.ID),
		slog.Int("rows_kept", report.RowsKept),
		slog.Int("rows_skipped", report.RowsSkipped))
	return report, true, nil
}

var fileHeaders = []string{"nome", "fluxo", "linhas_mantidas", "linhas_descartadas", "ingerido_em", "checksum", "id"}

func runFiles(ctx context.Context, cfg *config.Config, args []string, out io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	database := databaseFlags(fs, cfg.Data)
	csvPath := fs.String("csv", "", "also write the list to this CSV file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	data, err := database()
	if err != nil {
		return err
	}
	st, err := app.OpenStore(ctx, data, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	files, err := st.ListFiles(ctx)
	if err != nil {
		return err
	}

	records := make([][]string, len(files))
	for i, f := range files {
		records[i] = []string{
			f.Name, string(f.Flow), strconv.Itoa(f.RowsKept), strconv.Itoa(f.RowsSkipped),
			f.IngestedAt.Format(time.RFC3339), f.Checksum, f.ID,
		}
		fmt.Fprintf(out, "%s\t%s\t%s rows\t%s\n",
			f.Name, f.Flow, format.Number(float64(f.RowsKept), 0), f.IngestedAt.Local().Format("02/01/2006 15:04"))
	}
	fmt.Fprintf(out, "%d files\n", len(files))

	if *csvPath == "" {
		return nil
	}
	return exporter.NewCSVWriter(logger).WriteFile(*csvPath, exporter.WriteOptions{
		Headers:   fileHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

func runReport(ctx context.Context, cfg *config.Config, args []string, out io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outPath := fs.String("out", "relatorio.xlsx", "output workbook path")
	var q services.Query
	fs.StringVar(&q.Flow, "flow", "", "export | import")
	fs.StringVar(&q.Dimension, "by", "", "top ranking dimension")
	fs.StringVar(&q.Metric, "metric", "", "fob | weight")
	fs.IntVar(&q.N, "n", 0, "number of top entries")
	fs.IntVar(&q.BaseYear, "base", 0, "year-over-year base year")
	fs.IntVar(&q.CompareYear, "compare", 0, "year-over-year compare year")
	fs.BoolVar(&q.SamePeriod, "same-period", false, "compare only the months present in both years")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	source, st, err := app.OpenSource(ctx, cfg.Data, logger)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	dashboard := services.NewDashboardService(source, cfg, nil, nil, logger)
	status, err := dashboard.Reload(ctx)
	if err != nil {
		return err
	}

	file, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *outPath, err)
	}
	if err := dashboard.ExportWorkbook(ctx, q, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s rows from %s\n", *outPath, format.Number(float64(status.Rows), 0), status.Source)

	summary, err := dashboard.Summary(ctx, q)
	if err != nil {
		return err
	}
	yoy, err := dashboard.YoY(ctx, q)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "FOB US$ %s, %s; %d x %d: %s\n",
		format.Compact(summary.FOB), format.Tonnes(summary.NetWeight),
		yoy.BaseYear, yoy.CompareYear, format.Percent(yoy.Total.FOBChange))
	return nil
}
