package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/artifact"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/config"
)

func testOptions() options {
	return options{
		seed:         7,
		requests:     2000,
		lambda:       1,
		testFraction: 0.2,
	}
}

func TestRun_SavesBundle(t *testing.T) {
	store := artifact.NewInMemoryStore()

	require.NoError(t, run(context.Background(), store, testOptions(), zerolog.Nop()))

	assert.Equal(t, 1, store.Saves())
	bundle, err := store.Load(context.Background())
	require.NoError(t, err)
	eval := bundle.Model.Evaluation
	assert.Positive(t, eval.TestRows)
	assert.Greater(t, eval.TrainRows, eval.TestRows)
	assert.False(t, bundle.Model.TrainedAt.IsZero())
}

func TestRun_WritesArtifactsAndCSV(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions()
	opts.csvPath = filepath.Join(dir, "rides.csv")
	opts.outputDir = dir

	store, closeStore, err := openStore(context.Background(), &config.Config{}, opts, zerolog.Nop())
	require.NoError(t, err)
	defer closeStore()

	require.NoError(t, run(context.Background(), store, opts, zerolog.Nop()))

	bundle, err := artifact.NewFileStore(dir).Load(context.Background())
	require.NoError(t, err)
	assert.NoError(t, bundle.Validate())

	info, err := os.Stat(opts.csvPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestOpenStore_DefaultsToConfiguredDir(t *testing.T) {
	cfg := &config.Config{Artifacts: config.ArtifactsConfig{Source: config.SourceFile, Dir: t.TempDir()}}

	store, closeStore, err := openStore(context.Background(), cfg, testOptions(), zerolog.Nop())
	require.NoError(t, err)
	defer closeStore()

	fs, ok := store.(*artifact.FileStore)
	require.True(t, ok)
	assert.Equal(t, cfg.Artifacts.Dir, fs.Dir())
}
