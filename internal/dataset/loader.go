package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"caption-service/internal/nn"
)

// Batch is a stacked group of samples.
type Batch struct {
	Inputs *nn.Tensor
	Labels []int
	Paths  []string
}

// Loader iterates an ImageFolder in batches. Samples inside a batch are
// decoded concurrently.
type Loader struct {
	ds        *ImageFolder
	batchSize int
	workers   int
	rng       *rand.Rand
}

type LoaderOption func(*Loader)

// WithShuffle reorders samples every pass using a generator seeded with seed.
func WithShuffle(seed uint64) LoaderOption {
	return func(l *Loader) {
		l.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithWorkers bounds the number of concurrent decodes per batch.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

func NewLoader(ds *ImageFolder, batchSize int, opts ...LoaderOption) *Loader {
	if batchSize < 1 {
		batchSize = 1
	}
	l := &Loader{ds: ds, batchSize: batchSize, workers: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Batches returns the number of batches per pass. The last one may be short.
func (l *Loader) Batches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Each runs fn once per batch, in order. It stops at the first error from
// loading or from fn, or when ctx is done.
func (l *Loader) Each(ctx context.Context, fn func(Batch) error) error {
	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.rng != nil {
		l.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	for start := 0; start < len(order); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := l.load(ctx, order[start:min(start+l.batchSize, len(order))])
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) load(ctx context.Context, idx []int) (Batch, error) {
	inputs := make([]*nn.Tensor, len(idx))
	labels := make([]int, len(idx))
	paths := make([]string, len(idx))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, id := range idx {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x, label, err := l.ds.Load(id)
			if err != nil {
				return err
			}
			inputs[i], labels[i], paths[i] = x, label, l.ds.Samples[id].Path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	stacked, err := nn.Stack(inputs)
	if err != nil {
		return Batch{}, fmt.Errorf("stack batch: %w", err)
	}
	return Batch{Inputs: stacked, Labels: labels, Paths: paths}, nil
}
