// Command geohierarchy-collect runs the Collector stage (spec §4.1)
// over a JSONL feed of tagged entities, producing the region-info
// binary file cmd/geohierarchy's --input flag reads.
//
// Grounded on the teacher's (mumuon-tile-service) single-purpose cmd/
// tools (analyze-kml, convert-kml): a small flag.String-only main that
// wraps one library call.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/maksim-andrianov/geohierarchy/internal/collector"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

func main() {
	entitiesPath := flag.String("entities", "", "Path to the JSONL entity feed (required)")
	outputPath := flag.String("output", "", "Path to write the region-info binary file (required)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *entitiesPath == "" || *outputPath == "" {
		fmt.Println("usage: geohierarchy-collect -entities entities.jsonl -output region-info.bin")
		os.Exit(1)
	}

	in, err := os.Open(*entitiesPath)
	if err != nil {
		logger.Error("failed to open entities file", "error", err)
		os.Exit(pipelineerr.ExitCode(pipelineerr.New(pipelineerr.KindIOMissing, "", err)))
	}
	defer in.Close()

	c := collector.New(logger)
	if err := collector.LoadEntities(in, c); err != nil {
		logger.Error("failed to load entities", "error", err)
		os.Exit(pipelineerr.ExitCode(err))
	}

	out, err := os.Create(*outputPath)
	if err != nil {
		logger.Error("failed to create output file", "error", err)
		os.Exit(pipelineerr.ExitCode(pipelineerr.New(pipelineerr.KindIOMissing, "", err)))
	}
	defer out.Close()

	if err := regiondata.Save(out, c.Info()); err != nil {
		logger.Error("failed to write region-info file", "error", err)
		os.Exit(pipelineerr.ExitCode(pipelineerr.New(pipelineerr.KindInternal, "", err)))
	}

	logger.Info("region-info written",
		"regions", len(c.Info().RegionData),
		"iso_codes", len(c.Info().IsoCodes),
		"output", *outputPath,
	)
}
