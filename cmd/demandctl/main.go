// Package main provides demandctl, a command line client for the demand API.
//
// Usage:
//
//	demandctl [-url URL] health
//	demandctl [-url URL] predict -origin Chennai -destination Bangalore -day Friday -hour 18 -weather sunny
//	demandctl [-url URL] predict -data '{"origin":"Chennai",...}'
//	demandctl [-url URL] heatmap
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/mlclient"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("demandctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	baseURL := global.String("url", envOr("ML_SERVICE_URL", mlclient.DefaultBaseURL), "demand API base URL")
	timeout := global.Duration("timeout", 30*time.Second, "overall request timeout")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: demandctl [-url URL] health|predict|heatmap [flags]")
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := mlclient.NewClient(mlclient.ClientConfig{
		BaseURL: *baseURL,
		Logger:  zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).With().Timestamp().Logger(),
	})

	var out any
	var err error
	switch cmd, rest := global.Arg(0), global.Args()[1:]; cmd {
	case "health":
		out, err = client.Health(ctx)
	case "predict":
		out, err = predict(ctx, client, rest, stderr)
	case "heatmap":
		out, err = client.DemandHeatmap(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	if err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			return 2
		}
		var apiErr *mlclient.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(stderr, "error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			for _, f := range apiErr.Fields {
				fmt.Fprintf(stderr, "  %s: %s\n", f.Field, f.Message)
			}
			return 1
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

type usageError struct{ error }

func predict(ctx context.Context, client *mlclient.Client, args []string, stderr io.Writer) (*models.PredictDemandResponse, error) {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	data := fs.String("data", "", "raw JSON request body; overrides the field flags")
	var in models.PredictInputs
	fs.StringVar(&in.Origin, "origin", "", "origin city")
	fs.StringVar(&in.Destination, "destination", "", "destination city")
	fs.StringVar(&in.DayOfWeek, "day", "", "day of week, e.g. Friday")
	fs.IntVar(&in.Hour, "hour", 0, "hour of day (0-23)")
	fs.StringVar(&in.Weather, "weather", "", "sunny, cloudy or rainy")
	if err := fs.Parse(args); err != nil {
		return nil, usageError{err}
	}

	if *data != "" {
		return client.PredictDemandRaw(ctx, []byte(*data))
	}
	return client.PredictDemand(ctx, in)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
