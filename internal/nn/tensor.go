// Package nn holds the small pure-Go image classifier used by the training
// job and the serving runtime: a dense float32 tensor, a pooled linear
// classifier, softmax cross-entropy, SGD with momentum and the traced
// inference graph.
package nn

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch = errors.New("nn: shape mismatch")
	ErrEmptyBatch    = errors.New("nn: empty batch")
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, numel(shape))}
}

// FromData wraps data in a tensor, checking that the shape fits.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if n := numel(shape); n != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.Shape[i]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{Shape: append([]int(nil), t.Shape...), Data: append([]float32(nil), t.Data...)}
}

// Unsqueeze0 returns a view with a leading batch dimension of size 1.
func (t *Tensor) Unsqueeze0() *Tensor {
	return &Tensor{Shape: append([]int{1}, t.Shape...), Data: t.Data}
}

// SameShape reports whether t and o have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Stack joins equally shaped tensors along a new leading dimension.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, ErrEmptyBatch
	}
	first := ts[0]
	out := &Tensor{
		Shape: append([]int{len(ts)}, first.Shape...),
		Data:  make([]float32, 0, len(ts)*first.Len()),
	}
	for _, t := range ts {
		if !t.SameShape(first) {
			return nil, fmt.Errorf("%w: stack %v with %v", ErrShapeMismatch, first.Shape, t.Shape)
		}
		out.Data = append(out.Data, t.Data...)
	}
	return out, nil
}

// Argmax returns the index of the largest value in each row of a [N,C]
// tensor. The first maximum wins.
func Argmax(t *Tensor) ([]int, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("%w: argmax wants [N,C], got %v", ErrShapeMismatch, t.Shape)
	}
	n, c := t.Shape[0], t.Shape[1]
	if c == 0 {
		return nil, fmt.Errorf("%w: argmax over zero classes", ErrShapeMismatch)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		row := t.Data[i*c : (i+1)*c]
		best := 0
		for j := 1; j < c; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out, nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
