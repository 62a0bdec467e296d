package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/artifact"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/dataset"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

func TestLoadState_MissingArtifacts(t *testing.T) {
	store := artifact.NewFileStore(t.TempDir())

	assert.Nil(t, loadState(context.Background(), store, zerolog.Nop()))
}

func TestLoadState_TrainedArtifacts(t *testing.T) {
	cfg := dataset.DefaultConfig()
	cfg.Requests = 1500
	result, err := model.Train(dataset.Generate(cfg), model.TrainOptions{Seed: 3})
	require.NoError(t, err)

	store := artifact.NewInMemoryStore()
	require.NoError(t, store.Save(context.Background(), &artifact.Bundle{
		Model:    result.Model,
		Encoders: result.Encoders,
	}))

	assert.NotNil(t, loadState(context.Background(), store, zerolog.Nop()))
}
