package nn

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	GraphFormat  = "caption-graph"
	GraphVersion = 1
)

var ErrInvalidGraph = errors.New("nn: invalid graph")

type OpKind string

const (
	OpAdaptiveAvgPool OpKind = "adaptive_avg_pool"
	OpLinear          OpKind = "linear"
)

// Op is one frozen step of a traced graph.
type Op struct {
	Kind   OpKind
	Grid   int
	In     int
	Out    int
	Weight []float32
	Bias   []float32
}

// Graph is a classifier frozen for inference. It carries its own weights and
// does not need the classifier type to run.
type Graph struct {
	Format     string
	Version    int
	InputShape []int
	Ops        []Op

	training bool
}

// Trace freezes the current parameters of c into a graph.
func Trace(c *Classifier) *Graph {
	return &Graph{
		Format:     GraphFormat,
		Version:    GraphVersion,
		InputShape: []int{InputChannels, InputSize, InputSize},
		Ops: []Op{
			{Kind: OpAdaptiveAvgPool, Grid: PoolGrid},
			{
				Kind:   OpLinear,
				In:     FeatureCount,
				Out:    c.classes,
				Weight: append([]float32(nil), c.weight.Data...),
				Bias:   append([]float32(nil), c.bias.Data...),
			},
		},
	}
}

// Eval puts the graph in inference mode. Loaded graphs are always in eval mode.
func (g *Graph) Eval() { g.training = false }

func (g *Graph) Training() bool { return g.training }

// Classes returns the width of the final layer.
func (g *Graph) Classes() int {
	for i := len(g.Ops) - 1; i >= 0; i-- {
		if g.Ops[i].Kind == OpLinear {
			return g.Ops[i].Out
		}
	}
	return 0
}

// Validate checks the header and every op.
func (g *Graph) Validate() error {
	if g.Format != GraphFormat {
		return fmt.Errorf("%w: format %q", ErrInvalidGraph, g.Format)
	}
	if g.Version != GraphVersion {
		return fmt.Errorf("%w: version %d", ErrInvalidGraph, g.Version)
	}
	if len(g.InputShape) != 3 {
		return fmt.Errorf("%w: input shape %v", ErrInvalidGraph, g.InputShape)
	}
	if len(g.Ops) == 0 {
		return fmt.Errorf("%w: no ops", ErrInvalidGraph)
	}
	for i, op := range g.Ops {
		switch op.Kind {
		case OpAdaptiveAvgPool:
			if op.Grid <= 0 {
				return fmt.Errorf("%w: op %d grid %d", ErrInvalidGraph, i, op.Grid)
			}
		case OpLinear:
			if op.In <= 0 || op.Out <= 0 || len(op.Weight) != op.In*op.Out || len(op.Bias) != op.Out {
				return fmt.Errorf("%w: op %d linear %dx%d with %d weights", ErrInvalidGraph, i, op.Out, op.In, len(op.Weight))
			}
		default:
			return fmt.Errorf("%w: op %d kind %q", ErrInvalidGraph, i, op.Kind)
		}
	}
	return nil
}

// Forward runs x, shaped [N, InputShape...], through the graph.
func (g *Graph) Forward(x *Tensor) (*Tensor, error) {
	if len(x.Shape) != len(g.InputShape)+1 {
		return nil, fmt.Errorf("%w: input %v, want [N %v]", ErrShapeMismatch, x.Shape, g.InputShape)
	}
	for i, d := range g.InputShape {
		if x.Shape[i+1] != d {
			return nil, fmt.Errorf("%w: input %v, want [N %v]", ErrShapeMismatch, x.Shape, g.InputShape)
		}
	}

	cur := x
	for _, op := range g.Ops {
		var err error
		switch op.Kind {
		case OpAdaptiveAvgPool:
			cur, err = adaptiveAvgPool(cur, op.Grid)
		case OpLinear:
			if len(cur.Shape) != 2 || cur.Dim(1) != op.In {
				return nil, fmt.Errorf("%w: linear input %v, want [N %d]", ErrShapeMismatch, cur.Shape, op.In)
			}
			cur = linear(cur, op.Weight, op.Bias, op.Out)
		default:
			err = fmt.Errorf("%w: kind %q", ErrInvalidGraph, op.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// WriteGraph encodes g with gob.
func WriteGraph(w io.Writer, g *Graph) error {
	if err := gob.NewEncoder(w).Encode(g); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// ReadGraph decodes and validates a graph. The result is in eval mode.
func ReadGraph(r io.Reader) (*Graph, error) {
	var g Graph
	if err := gob.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidGraph, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Eval()
	return &g, nil
}

// WriteState encodes a state dict with gob.
func WriteState(w io.Writer, state map[string]*Tensor) error {
	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return nil
}

// ReadState decodes a state dict written by WriteState.
func ReadState(r io.Reader) (map[string]*Tensor, error) {
	var state map[string]*Tensor
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	for name, t := range state {
		if t == nil || numel(t.Shape) != len(t.Data) {
			return nil, fmt.Errorf("%w: state entry %s", ErrShapeMismatch, name)
		}
	}
	return state, nil
}

func SaveGraph(path string, g *Graph) error {
	return writeFile(path, func(w io.Writer) error { return WriteGraph(w, g) })
}

func LoadGraph(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraph(f)
}

func SaveState(path string, state map[string]*Tensor) error {
	return writeFile(path, func(w io.Writer) error { return WriteState(w, state) })
}

func LoadState(path string) (map[string]*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadState(f)
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
