// Package main is the blend CLI. It loads two supplier price series, finds
// the minimum variance split and prints it:
//
//	blend -source prices.csv
//	blend -source sqlite://history.db -steps 1001
//	blend -source s3://supply-data/prices.csv -workers 4
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/blendopt/internal/config"
	"github.com/aristath/blendopt/internal/modules/blend"
	"github.com/aristath/blendopt/internal/modules/prices"
	"github.com/aristath/blendopt/internal/report"
	"github.com/aristath/blendopt/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses flags over the environment configuration, executes the search
// and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("blend", flag.ContinueOnError)
	fs.SetOutput(stderr)
	source := fs.String("source", cfg.PricesSource, "price source: CSV path, sqlite://path or s3://bucket/key")
	steps := fs.Int("steps", cfg.Steps, "number of blend weights evaluated over [0, 1]")
	workers := fs.Int("workers", cfg.Workers, "parallel grid workers, 0 evaluates sequentially")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logger.New(logger.Config{
		Level:  *logLevel,
		Pretty: cfg.LogPretty,
		Output: stderr,
	})

	loader, err := prices.NewLoader(ctx, *source, prices.LoaderOptions{
		S3:  cfg.S3,
		Log: log,
	})
	if err != nil {
		fmt.Fprintln(stdout, report.Describe(*source, err))
		return 1
	}

	series, err := loader.Load(ctx)
	if err != nil {
		log.Debug().Err(err).Str("source", loader.Name()).Msg("Failed to load prices")
		fmt.Fprintln(stdout, report.Describe(*source, err))
		return 1
	}

	log.Debug().
		Str("source", loader.Name()).
		Int("periods", series.Len()).
		Int("steps", *steps).
		Int("workers", *workers).
		Msg("Running blend optimization")

	result, err := blend.Run(ctx, series.A, series.B, *steps, *workers)
	if err != nil {
		fmt.Fprintln(stdout, report.Describe(*source, err))
		return 1
	}

	if err := report.Write(stdout, result); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
		return 1
	}
	return 0
}
