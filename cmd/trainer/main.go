// Package main provides the trainer: it simulates ride requests, fits the
// demand model and saves it to the configured artifact store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/artifact"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/config"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/dataset"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/logging"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

// Version is set at compile time via ldflags.
var Version = "dev"

type options struct {
	configPath   string
	seed         uint64
	requests     int
	lambda       float64
	testFraction float64
	csvPath      string
	outputDir    string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	flag.Uint64Var(&o.seed, "seed", dataset.DefaultConfig().Seed, "random seed for simulation and split")
	flag.IntVar(&o.requests, "requests", dataset.DefaultConfig().Requests, "number of simulated requests")
	flag.Float64Var(&o.lambda, "lambda", model.DefaultLambda, "ridge penalty")
	flag.Float64Var(&o.testFraction, "test-fraction", 0.2, "fraction of rows held out for evaluation")
	flag.StringVar(&o.csvPath, "csv", "", "also write the aggregated dataset to this CSV file")
	flag.StringVar(&o.outputDir, "output", "", "write artifacts to this directory instead of the configured store")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logging.New(cfg.Logging, os.Stderr).With().Str("service", "demand-trainer").Logger()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, opts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open artifact store")
	}
	defer closeStore()

	if err := run(ctx, store, opts, log); err != nil {
		log.Error().Err(err).Msg("training failed")
		closeStore()
		os.Exit(1) //nolint:gocritic // store already closed
	}
}

// openStore returns a FileStore for -output, else the configured store.
func openStore(ctx context.Context, cfg *config.Config, opts options, log zerolog.Logger) (artifact.Store, func(), error) {
	if opts.outputDir != "" {
		return artifact.NewFileStore(opts.outputDir), func() {}, nil
	}
	return artifact.Open(ctx, cfg, log)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, store artifact.Store, opts options, log zerolog.Logger) error {
	gen := dataset.DefaultConfig()
	gen.Seed = opts.seed
	gen.Requests = opts.requests

	started := time.Now()
	rows := dataset.Generate(gen)
	log.Info().
		Int("requests", gen.Requests).
		Int("rows", len(rows)).
		Uint64("seed", gen.Seed).
		Msg("dataset generated")

	if opts.csvPath != "" {
		if err := writeCSV(opts.csvPath, rows); err != nil {
			return err
		}
		log.Info().Str("path", opts.csvPath).Msg("dataset written")
	}

	result, err := model.Train(rows, model.TrainOptions{
		TestFraction: opts.testFraction,
		Lambda:       opts.lambda,
		Seed:         opts.seed,
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	eval := result.Model.Evaluation
	log.Info().
		Float64("mae", eval.MAE).
		Float64("r2", eval.R2).
		Int("train_rows", eval.TrainRows).
		Int("test_rows", eval.TestRows).
		Dur("elapsed", time.Since(started)).
		Msg("model trained")

	if err := store.Save(ctx, &artifact.Bundle{Model: result.Model, Encoders: result.Encoders}); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	log.Info().Msg("artifacts saved")
	return nil
}

func writeCSV(path string, rows []dataset.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := dataset.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
