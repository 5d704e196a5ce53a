// Command geohierarchy runs the region-set construction, repair and
// hierarchy-building pipeline over a region-info file, a features feed
// and a border file, emitting a JSONL forest (and optionally a CSV
// flattening of it) to disk (spec §6 "CLI surface").
//
// Grounded on the teacher's (mumuon-tile-service) main.go: the same
// flag.Bool/flag.String flag set, slog.NewTextHandler logger, and
// os/signal-driven context cancellation, trimmed from its multi-command
// dispatch (generate/upload/extract/...) to this tool's single job.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maksim-andrianov/geohierarchy/internal/artifactstore"
	"github.com/maksim-andrianov/geohierarchy/internal/config"
	"github.com/maksim-andrianov/geohierarchy/internal/jobstore"
	"github.com/maksim-andrianov/geohierarchy/internal/pipeline"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
)

func main() {
	configPath := flag.String("config", ".env", "Path to config file")
	input := flag.String("input", "", "Path to the region-info binary file (required)")
	features := flag.String("features", "", "Path to the JSONL feature feed (required)")
	borders := flag.String("borders", "", "Path to the borders binary file (required)")
	outputJSONL := flag.String("output-jsonl", "", "Path to write the JSONL hierarchy output (required)")
	outputCSV := flag.String("output-csv", "", "Path to write the flattened CSV output (optional)")
	threads := flag.Int("threads", 0, "Worker pool size (0 = runtime.NumCPU())")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	wholeWorld := flag.Bool("whole-world", false, "Assume the border set tiles the entire mercator plane with no gaps")
	help := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *help {
		showHelp()
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath, *input, *features, *borders, *outputJSONL, *outputCSV, *threads, *verbose, *wholeWorld)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		showHelp()
		os.Exit(pipelineerr.ExitCode(pipelineerr.New(pipelineerr.KindIOMissing, "", err)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("received interrupt, cancelling run")
		cancel()
	}()

	store, run := openJobstore(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	stats, runErr := pipeline.Run(ctx, cfg, logger)
	finishJobstore(ctx, store, run, stats, runErr, logger)

	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		os.Exit(pipelineerr.ExitCode(runErr))
	}
	logger.Info("pipeline completed",
		"regions_collected", stats.RegionsCollected,
		"countries_built", stats.CountriesBuilt,
		"trees_merged", stats.TreesMerged,
		"regions_emitted", stats.RegionsEmitted,
	)

	uploadArtifacts(ctx, cfg, logger)
}

// openJobstore opens a PipelineRun bookkeeping row when Postgres
// settings are configured; any failure here is logged and treated as
// "run without job tracking" rather than fatal, matching the teacher's
// main.go treatment of an unavailable database for tile-generation jobs.
func openJobstore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*jobstore.Store, *jobstore.Run) {
	if !cfg.Database.Enabled() {
		return nil, nil
	}
	store, err := jobstore.Open(ctx, jobstore.DSN{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Warn("failed to connect to jobstore (continuing without job tracking)", "error", err)
		return nil, nil
	}
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn("failed to ensure jobstore schema (continuing without job tracking)", "error", err)
		store.Close()
		return nil, nil
	}
	run := jobstore.NewRun()
	if err := store.InsertRun(ctx, run); err != nil {
		logger.Warn("failed to insert run row (continuing without job tracking)", "error", err)
		store.Close()
		return nil, nil
	}
	return store, run
}

func finishJobstore(ctx context.Context, store *jobstore.Store, run *jobstore.Run, stats jobstore.Stats, runErr error, logger *slog.Logger) {
	if store == nil || run == nil {
		return
	}
	if runErr != nil {
		if err := store.FailRun(ctx, run.ID, runErr.Error()); err != nil {
			logger.Warn("failed to record run failure", "error", err)
		}
		return
	}
	if err := store.CompleteRun(ctx, run.ID, stats); err != nil {
		logger.Warn("failed to record run completion", "error", err)
	}
}

// uploadArtifacts uploads the finished outputs to object storage when
// S3 settings are configured. Never fatal: the files are already on
// disk, so an upload failure is a warning, not a pipeline failure.
func uploadArtifacts(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if !cfg.S3.Enabled() {
		return
	}
	uploadCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := artifactstore.New(uploadCtx, artifactstore.Settings{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		Prefix:          cfg.S3.Prefix,
	})
	if err != nil {
		logger.Warn("failed to initialize artifact store, skipping upload", "error", err)
		return
	}
	if _, err := store.UploadFile(uploadCtx, cfg.OutputJSONL, "hierarchy.jsonl"); err != nil {
		logger.Warn("failed to upload jsonl output", "error", err)
	}
	if cfg.OutputCSV != "" {
		if _, err := store.UploadFile(uploadCtx, cfg.OutputCSV, "hierarchy.csv"); err != nil {
			logger.Warn("failed to upload csv output", "error", err)
		}
	}
}

func showHelp() {
	fmt.Println(`geohierarchy - builds a strictly-nested region hierarchy from region data, feature geometry and country borders

Usage:
  geohierarchy -input region-info.bin -features features.jsonl -borders borders.bin -output-jsonl out.jsonl [flags]

Flags:
  -input PATH          region-info binary file (required)
  -features PATH        JSONL feature feed: id, kind, names, point or rings (required)
  -borders PATH         borders binary file (required)
  -output-jsonl PATH    JSONL hierarchy output (required)
  -output-csv PATH      flattened CSV output (optional)
  -threads N            worker pool size, 0 = runtime.NumCPU() (default 0)
  -whole-world          assume the border set tiles the entire mercator plane
  -verbose              enable debug logging
  -config PATH          path to .env config file (default ".env")
  -help                 show this message

Exit codes:
  0  success
  1  a required input file is missing or unreadable
  2  an input file failed its format validation
  3  an internal invariant was violated`)
}
