// Command erwingest loads results workbooks into the configured sample
// store without going through the HTTP API.
//
//	erwingest -in data/results -feedstock basalt -omega 5
//	erwingest -in results.xlsx -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"erwpulse/internal/archive"
	"erwpulse/internal/cache"
	"erwpulse/internal/config"
	"erwpulse/internal/dataprocessing"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/services"
	"erwpulse/internal/store"
	"erwpulse/internal/validation"
	"erwpulse/pkg/contracts"
)

// options are the command line flags.
type options struct {
	In        string
	Feedstock string
	Threshold int
	DryRun    bool
}

// fileResult is the outcome for one workbook.
type fileResult struct {
	Path      string
	Samples   int
	Summaries int
	Skipped   int
	Err       error
}

func main() {
	var opts options
	configFile := flag.String("config", "", "config file (defaults to the usual search path)")
	flag.StringVar(&opts.In, "in", "", "workbook or directory of .xlsx workbooks")
	flag.StringVar(&opts.Feedstock, "feedstock", config.DefaultFeedstock, "feedstock name the rows belong to")
	flag.IntVar(&opts.Threshold, "omega", config.DefaultThreshold, "saturation threshold the rows were computed at")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "parse workbooks without writing to the store")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return
	}

	if opts.In == "" {
		fmt.Fprintln(os.Stderr, "erwingest: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg.Logging.Output = "console"

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := run(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("Ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if failed := report(os.Stdout, results); failed > 0 {
		os.Exit(1)
	}
}

// run ingests every workbook under opts.In. Per-file failures are reported
// in the results; only setup failures are returned.
func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) ([]fileResult, error) {
	files, err := validation.NewFileValidator(logger).DiscoverWorkbooks(opts.In)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .xlsx workbooks found in %s", opts.In)
	}

	if opts.DryRun {
		return parseOnly(files, opts, logger), nil
	}

	if cfg.Store.Driver == config.StoreMemory {
		logger.WarnContext(ctx, "memory store selected, ingested samples are discarded on exit")
	}
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open sample store: %w", err)
	}
	defer st.Close()

	// Invalidating a shared cache keeps a running server's panels fresh.
	c, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer c.Close()

	arch, err := archive.New(ctx, cfg.Archive, logger)
	if err != nil {
		return nil, fmt.Errorf("open upload archive: %w", err)
	}
	defer arch.Close()

	svc := services.NewIngestService(st, services.IngestOptions{
		Archive:       arch,
		ArchivePrefix: cfg.Archive.Prefix,
		Cache:         c,
		Keys:          cache.Keys{Prefix: cfg.Cache.Prefix},
		Logger:        logger,
	})

	results := make([]fileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := fileResult{Path: path}

		content, err := os.ReadFile(path)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		out, err := svc.Upload(ctx, services.UploadRequest{
			Feedstock: opts.Feedstock,
			Threshold: opts.Threshold,
			Filename:  filepath.Base(path),
			Content:   content,
		})
		res.Samples, res.Summaries, res.Skipped, res.Err = out.SamplesCount, out.SummariesCount, out.Skipped, err
		results = append(results, res)
	}
	return results, nil
}

func parseOnly(files []string, opts options, logger *slog.Logger) []fileResult {
	reader := dataprocessing.NewWorkbookReader(logger)
	batch := dataprocessing.BatchContext{Feedstock: opts.Feedstock, Threshold: opts.Threshold}.Normalized()

	results := make([]fileResult, 0, len(files))
	for _, path := range files {
		res := fileResult{Path: path}
		parsed, err := reader.ReadFile(path, batch)
		if err != nil {
			res.Err = err
		} else {
			res.Samples, res.Summaries, res.Skipped = len(parsed.Samples), len(parsed.Summaries), parsed.SkippedRows
		}
		results = append(results, res)
	}
	return results
}

// report prints one line per workbook and returns the number of failures.
func report(w io.Writer, results []fileResult) int {
	fmt.Fprintln(w, contracts.GetVersionString())
	failed := 0
	var samples, summaries int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", r.Path, r.Err)
			continue
		}
		samples += r.Samples
		summaries += r.Summaries
		fmt.Fprintf(w, "OK    %s: %d samples, %d summaries, %d skipped rows\n",
			r.Path, r.Samples, r.Summaries, r.Skipped)
	}
	fmt.Fprintf(w, "%d workbooks, %d failed, %d samples, %d summaries\n",
		len(results), failed, samples, summaries)
	return failed
}
