package dataset

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caption-service/internal/core/domain"
	"caption-service/internal/imaging"
	"caption-service/internal/nn"
)

func writePNG(t *testing.T, path string, gray uint8) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = gray
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func fixture(t *testing.T) string {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "dogs", "b.png"), 200)
	writePNG(t, filepath.Join(root, "cats", "a.png"), 10)
	writePNG(t, filepath.Join(root, "cats", "nested", "c.PNG"), 20)
	require.NoError(t, os.WriteFile(filepath.Join(root, "cats", "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("skip"), 0o644))
	return root
}

func TestNewImageFolder(t *testing.T) {
	root := fixture(t)

	ds, err := NewImageFolder(root, imaging.TrainTransform)
	require.NoError(t, err)

	assert.Equal(t, []string{"cats", "dogs"}, ds.Classes)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, 0, ds.Samples[0].Label)
	assert.Equal(t, 0, ds.Samples[1].Label)
	assert.Equal(t, 1, ds.Samples[2].Label)
}

func TestNewImageFolder_FollowsSymlinkedClass(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	writePNG(t, filepath.Join(root, "dog", "d.png"), 200)
	writePNG(t, filepath.Join(elsewhere, "cat", "c.png"), 10)
	if err := os.Symlink(filepath.Join(elsewhere, "cat"), filepath.Join(root, "cat")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	ds, err := NewImageFolder(root, imaging.TrainTransform)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog"}, ds.Classes)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, Sample{Path: filepath.Join(root, "cat", "c.png"), Label: 0}, ds.Samples[0])
	assert.Equal(t, Sample{Path: filepath.Join(root, "dog", "d.png"), Label: 1}, ds.Samples[1])
}

func TestNewImageFolder_Errors(t *testing.T) {
	t.Run("no class dirs", func(t *testing.T) {
		_, err := NewImageFolder(t.TempDir(), imaging.TrainTransform)
		assert.ErrorIs(t, err, domain.ErrNoClassDirs)
	})

	t.Run("no images", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
		_, err := NewImageFolder(root, imaging.TrainTransform)
		assert.ErrorIs(t, err, domain.ErrEmptyDataset)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := NewImageFolder(filepath.Join(t.TempDir(), "nope"), imaging.TrainTransform)
		assert.Error(t, err)
	})
}

func TestLoader_Each(t *testing.T) {
	ds, err := NewImageFolder(fixture(t), imaging.TrainTransform)
	require.NoError(t, err)

	loader := NewLoader(ds, 2, WithWorkers(2))
	assert.Equal(t, 2, loader.Batches())

	var sizes []int
	var labels []int
	err = loader.Each(context.Background(), func(b Batch) error {
		sizes = append(sizes, b.Inputs.Dim(0))
		assert.Equal(t, []int{b.Inputs.Dim(0), 3, nn.InputSize, nn.InputSize}, b.Inputs.Shape)
		labels = append(labels, b.Labels...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, sizes)
	assert.Equal(t, []int{0, 0, 1}, labels)
}

func TestLoader_ShuffleIsSeeded(t *testing.T) {
	ds, err := NewImageFolder(fixture(t), imaging.TrainTransform)
	require.NoError(t, err)

	order := func(seed uint64) []string {
		var paths []string
		err := NewLoader(ds, 1, WithShuffle(seed)).Each(context.Background(), func(b Batch) error {
			paths = append(paths, b.Paths...)
			return nil
		})
		require.NoError(t, err)
		return paths
	}

	first := order(7)
	assert.Len(t, first, 3)
	assert.Equal(t, first, order(7))
}

func TestLoader_StopsOnError(t *testing.T) {
	ds, err := NewImageFolder(fixture(t), imaging.TrainTransform)
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = NewLoader(ds, 1).Each(context.Background(), func(Batch) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestLoader_CorruptImage(t *testing.T) {
	root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "dogs", "z.jpg"), []byte("garbage"), 0o644))

	ds, err := NewImageFolder(root, imaging.TrainTransform)
	require.NoError(t, err)

	err = NewLoader(ds, 4).Each(context.Background(), func(Batch) error { return nil })
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestLoader_Cancelled(t *testing.T) {
	ds, err := NewImageFolder(fixture(t), imaging.TrainTransform)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewLoader(ds, 1).Each(ctx, func(Batch) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
