package nn

import (
	"errors"
	"fmt"
)

// Network geometry. Inputs are RGB 224x224; features are the per-channel
// averages over a 7x7 grid.
const (
	InputChannels = 3
	InputSize     = 224
	PoolGrid      = 7
	FeatureCount  = InputChannels * PoolGrid * PoolGrid
	StockClasses  = 1000
)

// State dict keys.
const (
	ParamWeight = "fc.weight"
	ParamBias   = "fc.bias"
)

var (
	ErrNotTraining     = errors.New("nn: backward called outside training mode")
	ErrNoForward       = errors.New("nn: backward called before forward")
	ErrMissingParam    = errors.New("nn: missing parameter in state dict")
	ErrLabelOutOfRange = errors.New("nn: label out of range")
)

// Param is a trainable parameter with its accumulated gradient.
type Param struct {
	Name  string
	Value *Tensor
	Grad  []float32
}

// Classifier is adaptive average pooling followed by one fully connected
// layer.
type Classifier struct {
	classes  int
	weight   *Tensor
	bias     *Tensor
	gradW    []float32
	gradB    []float32
	training bool
	features *Tensor
}

// NewClassifier returns a zero-initialized classifier with the given number
// of outputs, in training mode.
func NewClassifier(classes int) *Classifier {
	return &Classifier{
		classes:  classes,
		weight:   New(classes, FeatureCount),
		bias:     New(classes),
		gradW:    make([]float32, classes*FeatureCount),
		gradB:    make([]float32, classes),
		training: true,
	}
}

func (c *Classifier) Classes() int { return c.classes }

func (c *Classifier) Train() { c.training = true }

func (c *Classifier) Eval() {
	c.training = false
	c.features = nil
}

func (c *Classifier) Training() bool { return c.training }

// Forward maps a [N,3,H,W] batch to [N,classes] logits.
func (c *Classifier) Forward(x *Tensor) (*Tensor, error) {
	feats, err := adaptiveAvgPool(x, PoolGrid)
	if err != nil {
		return nil, err
	}
	if feats.Dim(1) != FeatureCount {
		return nil, fmt.Errorf("%w: %d input features, want %d", ErrShapeMismatch, feats.Dim(1), FeatureCount)
	}
	if c.training {
		c.features = feats
	}
	return linear(feats, c.weight.Data, c.bias.Data, c.classes), nil
}

// Backward accumulates parameter gradients for the last Forward call given
// the gradient of the loss with respect to the logits.
func (c *Classifier) Backward(gradLogits *Tensor) error {
	if !c.training {
		return ErrNotTraining
	}
	if c.features == nil {
		return ErrNoForward
	}
	n := c.features.Dim(0)
	if len(gradLogits.Shape) != 2 || gradLogits.Dim(0) != n || gradLogits.Dim(1) != c.classes {
		return fmt.Errorf("%w: grad %v for batch %d x %d", ErrShapeMismatch, gradLogits.Shape, n, c.classes)
	}

	for b := 0; b < n; b++ {
		f := c.features.Data[b*FeatureCount : (b+1)*FeatureCount]
		g := gradLogits.Data[b*c.classes : (b+1)*c.classes]
		for k, gk := range g {
			if gk == 0 {
				continue
			}
			c.gradB[k] += gk
			row := c.gradW[k*FeatureCount : (k+1)*FeatureCount]
			for j, fj := range f {
				row[j] += gk * fj
			}
		}
	}
	return nil
}

// ZeroGrad clears accumulated gradients.
func (c *Classifier) ZeroGrad() {
	clear(c.gradW)
	clear(c.gradB)
}

// Params exposes the trainable parameters to an optimizer.
func (c *Classifier) Params() []Param {
	return []Param{
		{Name: ParamWeight, Value: c.weight, Grad: c.gradW},
		{Name: ParamBias, Value: c.bias, Grad: c.gradB},
	}
}

// StateDict returns a copy of the parameters keyed by name.
func (c *Classifier) StateDict() map[string]*Tensor {
	return map[string]*Tensor{
		ParamWeight: c.weight.Clone(),
		ParamBias:   c.bias.Clone(),
	}
}

// LoadStateDict replaces the parameters. Shapes must match exactly.
func (c *Classifier) LoadStateDict(state map[string]*Tensor) error {
	weight, ok := state[ParamWeight]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingParam, ParamWeight)
	}
	bias, ok := state[ParamBias]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingParam, ParamBias)
	}
	if !weight.SameShape(c.weight) {
		return fmt.Errorf("%w: %s is %v, want %v", ErrShapeMismatch, ParamWeight, weight.Shape, c.weight.Shape)
	}
	if !bias.SameShape(c.bias) {
		return fmt.Errorf("%w: %s is %v, want %v", ErrShapeMismatch, ParamBias, bias.Shape, c.bias.Shape)
	}
	copy(c.weight.Data, weight.Data)
	copy(c.bias.Data, bias.Data)
	return nil
}

// adaptiveAvgPool pools [N,C,H,W] into [N, C*grid*grid] using the same cell
// boundaries as adaptive average pooling: floor(i*H/grid) to ceil((i+1)*H/grid).
func adaptiveAvgPool(x *Tensor, grid int) (*Tensor, error) {
	if len(x.Shape) != 4 {
		return nil, fmt.Errorf("%w: pool wants [N,C,H,W], got %v", ErrShapeMismatch, x.Shape)
	}
	n, ch, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	if n == 0 {
		return nil, ErrEmptyBatch
	}
	if h < grid || w < grid {
		return nil, fmt.Errorf("%w: %dx%d input smaller than %d grid", ErrShapeMismatch, h, w, grid)
	}

	perSample := ch * grid * grid
	out := New(n, perSample)
	for b := 0; b < n; b++ {
		for c := 0; c < ch; c++ {
			plane := x.Data[(b*ch+c)*h*w : (b*ch+c+1)*h*w]
			for gy := 0; gy < grid; gy++ {
				y0, y1 := gy*h/grid, ceilDiv((gy+1)*h, grid)
				for gx := 0; gx < grid; gx++ {
					x0, x1 := gx*w/grid, ceilDiv((gx+1)*w, grid)
					var sum float64
					for y := y0; y < y1; y++ {
						for _, v := range plane[y*w+x0 : y*w+x1] {
							sum += float64(v)
						}
					}
					cells := float64((y1 - y0) * (x1 - x0))
					out.Data[b*perSample+(c*grid+gy)*grid+gx] = float32(sum / cells)
				}
			}
		}
	}
	return out, nil
}

// linear computes feats·Wᵀ + b for W laid out [out, in].
func linear(feats *Tensor, weight, bias []float32, outDim int) *Tensor {
	n, in := feats.Dim(0), feats.Dim(1)
	out := New(n, outDim)
	for b := 0; b < n; b++ {
		f := feats.Data[b*in : (b+1)*in]
		for k := 0; k < outDim; k++ {
			row := weight[k*in : (k+1)*in]
			acc := bias[k]
			for j, fj := range f {
				acc += row[j] * fj
			}
			out.Data[b*outDim+k] = acc
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
