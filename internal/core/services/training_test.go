package services

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caption-service/internal/bundle"
	"caption-service/internal/core/domain"
	"caption-service/internal/nn"
)

func writeSample(t *testing.T, path string, c color.Color) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func trainFixture(t *testing.T) TrainConfig {
	t.Helper()
	root := t.TempDir()
	train := filepath.Join(root, "train")
	writeSample(t, filepath.Join(train, "cat", "1.png"), color.RGBA{R: 220, A: 255})
	writeSample(t, filepath.Join(train, "cat", "2.png"), color.RGBA{R: 200, G: 20, A: 255})
	writeSample(t, filepath.Join(train, "dog", "1.png"), color.RGBA{B: 220, A: 255})

	return TrainConfig{
		TrainDir:      train,
		ModelInputDir: filepath.Join(root, "model-in"),
		ModelDir:      filepath.Join(root, "model-out"),
		Epochs:        1,
		BatchSize:     1,
		LearningRate:  1e-4,
		Momentum:      0.9,
		Seed:          42,
	}
}

func TestTrainConfig_Validate(t *testing.T) {
	base := TrainConfig{TrainDir: "a", ModelDir: "b", Epochs: 1, BatchSize: 1, LearningRate: 1e-4, Momentum: 0.9}
	assert.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*TrainConfig)
	}{
		{name: "no train dir", mutate: func(c *TrainConfig) { c.TrainDir = "" }},
		{name: "no model dir", mutate: func(c *TrainConfig) { c.ModelDir = "" }},
		{name: "zero epochs", mutate: func(c *TrainConfig) { c.Epochs = 0 }},
		{name: "zero batch", mutate: func(c *TrainConfig) { c.BatchSize = 0 }},
		{name: "zero lr", mutate: func(c *TrainConfig) { c.LearningRate = 0 }},
		{name: "momentum one", mutate: func(c *TrainConfig) { c.Momentum = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidTrainArgs)
		})
	}
}

func TestTrainingService_Run_StockWeightsWithoutCheckpoint(t *testing.T) {
	cfg := trainFixture(t)

	result, err := NewTrainingService(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.FromCheckpoint)
	assert.Equal(t, 1, result.Epochs)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, []string{"cat", "dog"}, result.Classes)
	assert.Greater(t, result.MeanLoss, 0.0)

	f, err := os.Open(result.BundlePath)
	require.NoError(t, err)
	defer f.Close()
	members, err := bundle.ReadMembers(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Contains(t, members, domain.StateFileName)
	assert.Contains(t, members, domain.GraphFileName)

	g, err := nn.LoadGraph(result.GraphPath)
	require.NoError(t, err)
	assert.Equal(t, nn.StockClasses, g.Classes())
}

func TestTrainingService_Run_ResumesFromBundle(t *testing.T) {
	first := trainFixture(t)
	prev, err := NewTrainingService(first).Run(context.Background())
	require.NoError(t, err)

	second := trainFixture(t)
	require.NoError(t, os.MkdirAll(second.ModelInputDir, 0o755))
	data, err := os.ReadFile(prev.BundlePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(second.ModelInputDir, domain.BundleFileName), data, 0o644))

	result, err := NewTrainingService(second).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.FromCheckpoint)
	assert.FileExists(t, filepath.Join(second.ModelInputDir, domain.StateFileName))
}

func TestTrainingService_Run_Errors(t *testing.T) {
	t.Run("empty dataset", func(t *testing.T) {
		cfg := trainFixture(t)
		cfg.TrainDir = t.TempDir()
		_, err := NewTrainingService(cfg).Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoClassDirs)
	})

	t.Run("bad checkpoint shape", func(t *testing.T) {
		cfg := trainFixture(t)
		require.NoError(t, os.MkdirAll(cfg.ModelInputDir, 0o755))
		small := nn.NewClassifier(3)
		require.NoError(t, nn.SaveState(filepath.Join(cfg.ModelInputDir, domain.StateFileName), small.StateDict()))

		_, err := NewTrainingService(cfg).Run(context.Background())
		assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewTrainingService(trainFixture(t)).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
