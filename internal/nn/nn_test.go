package nn

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(shape []int, f func(i int) float32) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = f(i)
	}
	return t
}

// ============================================================================
// Tensor Tests
// ============================================================================

func TestFromData_ShapeMismatch(t *testing.T) {
	_, err := FromData([]float32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestStack(t *testing.T) {
	a, _ := FromData([]float32{1, 2}, 2)
	b, _ := FromData([]float32{3, 4}, 2)

	out, err := Stack([]*Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, out.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Data)

	_, err = Stack(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	c, _ := FromData([]float32{1, 2, 3}, 3)
	_, err = Stack([]*Tensor{a, c})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name string
		data []float32
		want []int
	}{
		{name: "single row", data: []float32{0.1, 0.9, 0.3}, want: []int{1}},
		{name: "first max wins", data: []float32{5, 5, 1}, want: []int{0}},
		{name: "negative logits", data: []float32{-3, -1, -2}, want: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := FromData(tt.data, 1, len(tt.data))
			require.NoError(t, err)
			got, err := Argmax(x)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsqueeze0(t *testing.T) {
	x := New(3, 4, 4)
	assert.Equal(t, []int{1, 3, 4, 4}, x.Unsqueeze0().Shape)
}

// ============================================================================
// Classifier Tests
// ============================================================================

func TestAdaptiveAvgPool_UniformInput(t *testing.T) {
	x := filled([]int{1, InputChannels, InputSize, InputSize}, func(int) float32 { return 0.5 })
	out, err := adaptiveAvgPool(x, PoolGrid)
	require.NoError(t, err)
	assert.Equal(t, []int{1, FeatureCount}, out.Shape)
	for _, v := range out.Data {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestAdaptiveAvgPool_RejectsSmallInput(t *testing.T) {
	_, err := adaptiveAvgPool(New(1, 3, 4, 4), PoolGrid)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestClassifier_BackwardMatchesNumericGradient(t *testing.T) {
	c := NewClassifier(3)
	for i := range c.weight.Data {
		c.weight.Data[i] = float32(math.Sin(float64(i))) * 0.1
	}
	x := filled([]int{2, InputChannels, PoolGrid, PoolGrid}, func(i int) float32 {
		return float32(math.Cos(float64(i) * 0.37))
	})
	labels := []int{2, 0}

	logits, err := c.Forward(x)
	require.NoError(t, err)
	_, grad, err := CrossEntropy(logits, labels)
	require.NoError(t, err)
	c.ZeroGrad()
	require.NoError(t, c.Backward(grad))

	lossAt := func() float64 {
		c.Eval()
		defer c.Train()
		out, err := c.Forward(x)
		require.NoError(t, err)
		loss, _, err := CrossEntropy(out, labels)
		require.NoError(t, err)
		return loss
	}

	const eps = 1e-3
	for _, idx := range []int{0, 5, FeatureCount + 7, 2*FeatureCount + 100} {
		orig := c.weight.Data[idx]
		c.weight.Data[idx] = orig + eps
		plus := lossAt()
		c.weight.Data[idx] = orig - eps
		minus := lossAt()
		c.weight.Data[idx] = orig

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, c.gradW[idx], 1e-3, "weight %d", idx)
	}
}

func TestClassifier_BackwardRequiresTrainingForward(t *testing.T) {
	c := NewClassifier(2)
	assert.ErrorIs(t, c.Backward(New(1, 2)), ErrNoForward)

	c.Eval()
	assert.ErrorIs(t, c.Backward(New(1, 2)), ErrNotTraining)
}

func TestClassifier_LoadStateDict(t *testing.T) {
	src := NewClassifier(4)
	src.weight.Data[3] = 1.5
	src.bias.Data[1] = -2

	dst := NewClassifier(4)
	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	assert.Equal(t, src.weight.Data, dst.weight.Data)
	assert.Equal(t, src.bias.Data, dst.bias.Data)

	err := NewClassifier(5).LoadStateDict(src.StateDict())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	err = dst.LoadStateDict(map[string]*Tensor{ParamWeight: src.weight})
	assert.ErrorIs(t, err, ErrMissingParam)
}

// ============================================================================
// Loss and Optimizer Tests
// ============================================================================

func TestCrossEntropy_UniformLogits(t *testing.T) {
	logits := New(1, 4)
	loss, grad, err := CrossEntropy(logits, []int{1})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(4), loss, 1e-9)
	assert.InDeltaSlice(t, []float32{0.25, -0.75, 0.25, 0.25}, grad.Data, 1e-6)
}

func TestCrossEntropy_Errors(t *testing.T) {
	_, _, err := CrossEntropy(New(1, 3), []int{3})
	assert.ErrorIs(t, err, ErrLabelOutOfRange)

	_, _, err = CrossEntropy(New(2, 3), []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, _, err = CrossEntropy(New(0, 3), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestSGD_Momentum(t *testing.T) {
	value, _ := FromData([]float32{1}, 1)
	grad := []float32{0.5}
	params := []Param{{Name: "p", Value: value, Grad: grad}}
	opt := NewSGD(0.1, 0.9)

	opt.Step(params)
	assert.InDelta(t, 1-0.1*0.5, value.Data[0], 1e-6)

	// v = 0.9*0.5 + 0.5 = 0.95
	opt.Step(params)
	assert.InDelta(t, 0.95-0.1*0.95, value.Data[0], 1e-6)
}

func TestSGD_NoMomentum(t *testing.T) {
	value, _ := FromData([]float32{2, 2}, 2)
	NewSGD(0.5, 0).Step([]Param{{Name: "p", Value: value, Grad: []float32{1, -1}}})
	assert.Equal(t, []float32{1.5, 2.5}, value.Data)
}

func TestTraining_ReducesLoss(t *testing.T) {
	c := NewClassifier(2)
	opt := NewSGD(0.01, 0.9)
	x := filled([]int{2, InputChannels, PoolGrid, PoolGrid}, func(i int) float32 {
		if i < FeatureCount {
			return 1
		}
		return -1
	})
	labels := []int{0, 1}

	var first, last float64
	for step := 0; step < 20; step++ {
		logits, err := c.Forward(x)
		require.NoError(t, err)
		loss, grad, err := CrossEntropy(logits, labels)
		require.NoError(t, err)
		if step == 0 {
			first = loss
		}
		last = loss
		c.ZeroGrad()
		require.NoError(t, c.Backward(grad))
		opt.Step(c.Params())
	}
	assert.Less(t, last, first)
}

// ============================================================================
// Stock Weights Tests
// ============================================================================

func TestStockWeights_Deterministic(t *testing.T) {
	a, err := StockWeights()
	require.NoError(t, err)
	b, err := StockWeights()
	require.NoError(t, err)

	assert.Equal(t, []int{StockClasses, FeatureCount}, a[ParamWeight].Shape)
	assert.Equal(t, []int{StockClasses}, a[ParamBias].Shape)
	assert.Equal(t, a[ParamWeight].Data, b[ParamWeight].Data)

	c := NewClassifier(StockClasses)
	require.NoError(t, c.LoadStateDict(a))
}

// ============================================================================
// Graph Tests
// ============================================================================

func TestTrace_MatchesClassifier(t *testing.T) {
	c := NewClassifier(5)
	for i := range c.weight.Data {
		c.weight.Data[i] = float32(i%7) * 0.01
	}
	c.bias.Data[2] = 0.3
	c.Eval()

	x := filled([]int{1, InputChannels, InputSize, InputSize}, func(i int) float32 {
		return float32(i%11) / 11
	})
	want, err := c.Forward(x)
	require.NoError(t, err)

	g := Trace(c)
	require.NoError(t, g.Validate())
	assert.Equal(t, 5, g.Classes())
	got, err := g.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, want.Data, got.Data)
}

func TestGraph_RejectsWrongInput(t *testing.T) {
	g := Trace(NewClassifier(2))
	_, err := g.Forward(New(1, 3, 32, 32))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestGraph_SaveLoad(t *testing.T) {
	c := NewClassifier(3)
	c.weight.Data[10] = 0.25
	g := Trace(c)

	path := filepath.Join(t.TempDir(), "graph.bin")
	require.NoError(t, SaveGraph(path, g))

	loaded, err := LoadGraph(path)
	require.NoError(t, err)
	assert.False(t, loaded.Training())
	assert.Equal(t, g.Ops, loaded.Ops)
}

func TestReadGraph_Invalid(t *testing.T) {
	_, err := ReadGraph(bytes.NewReader([]byte("not a graph")))
	assert.ErrorIs(t, err, ErrInvalidGraph)

	var buf bytes.Buffer
	g := Trace(NewClassifier(2))
	g.Version = 99
	require.NoError(t, WriteGraph(&buf, g))
	_, err = ReadGraph(&buf)
	assert.ErrorIs(t, err, ErrInvalidGraph)
}

func TestState_SaveLoad(t *testing.T) {
	c := NewClassifier(2)
	c.bias.Data[1] = 4

	path := filepath.Join(t.TempDir(), "state.bin")
	require.NoError(t, SaveState(path, c.StateDict()))

	state, err := LoadState(path)
	require.NoError(t, err)

	restored := NewClassifier(2)
	require.NoError(t, restored.LoadStateDict(state))
	assert.Equal(t, c.bias.Data, restored.bias.Data)
}
