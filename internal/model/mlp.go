// Package model implements the floating-point reference classifier: a
// two-layer perceptron with a ReLU hidden layer. It is the model the trainer
// produces and the gold standard the fixed-point pipeline is verified
// against.
package model

import (
	"fmt"

	"github.com/samcharles93/fxprep/internal/tensor"
	"github.com/samcharles93/fxprep/pkg/quant"
)

// Parameter names as they appear in checkpoints and exported headers.
const (
	ParamW1 = "fc1.weight"
	ParamB1 = "fc1.bias"
	ParamW2 = "fc2.weight"
	ParamB2 = "fc2.bias"
)

// MLP is a two-layer classifier: out = W2*relu(W1*x + b1) + b2.
// Layer sizes are fixed at construction; weights are row-major with one row
// per output unit.
type MLP struct {
	In, Hidden, Out int

	W1 tensor.Mat // [Hidden x In]
	B1 []float32  // [Hidden]
	W2 tensor.Mat // [Out x Hidden]
	B2 []float32  // [Out]

	h []float32 // scratch [Hidden]
}

// New constructs an MLP with Xavier-initialised weights and zero biases.
// Identical seeds produce identical models.
func New(in, hidden, out int, seed int64) *MLP {
	m := &MLP{
		In:     in,
		Hidden: hidden,
		Out:    out,
		W1:     tensor.NewMat(hidden, in),
		B1:     make([]float32, hidden),
		W2:     tensor.NewMat(out, hidden),
		B2:     make([]float32, out),
		h:      make([]float32, hidden),
	}
	tensor.FillXavier(&m.W1, seed+11)
	tensor.FillXavier(&m.W2, seed+23)
	return m
}

// Forward computes the raw class scores for one input vector.
// A newly allocated slice is returned.
func (m *MLP) Forward(x []float32) []float32 {
	if len(x) != m.In {
		panic(fmt.Sprintf("model: input length %d, model expects %d", len(x), m.In))
	}
	tensor.MatVec(m.h, &m.W1, x)
	tensor.AddVec(m.h, m.B1)
	for i, v := range m.h {
		if v < 0 {
			m.h[i] = 0
		}
	}
	out := make([]float32, m.Out)
	tensor.MatVec(out, &m.W2, m.h)
	tensor.AddVec(out, m.B2)
	return out
}

// Predict returns the argmax class for one input vector, ties to the lowest
// index.
func (m *MLP) Predict(x []float32) int {
	out := m.Forward(x)
	best := 0
	for i := 1; i < len(out); i++ {
		if out[i] > out[best] {
			best = i
		}
	}
	return best
}

// Params returns the model's parameters as named float tensors, in a stable
// order suitable for checkpointing and quantization.
func (m *MLP) Params() []quant.Tensor {
	return []quant.Tensor{
		{Name: ParamW1, Shape: []int{m.Hidden, m.In}, Data: m.W1.Data},
		{Name: ParamB1, Shape: []int{m.Hidden}, Data: m.B1},
		{Name: ParamW2, Shape: []int{m.Out, m.Hidden}, Data: m.W2.Data},
		{Name: ParamB2, Shape: []int{m.Out}, Data: m.B2},
	}
}

// FromParams reconstructs an MLP from named tensors, eg a loaded checkpoint.
func FromParams(params []quant.Tensor) (*MLP, error) {
	byName := make(map[string]quant.Tensor, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}
	w1, ok := byName[ParamW1]
	if !ok || len(w1.Shape) != 2 {
		return nil, fmt.Errorf("model: missing or malformed %s", ParamW1)
	}
	w2, ok := byName[ParamW2]
	if !ok || len(w2.Shape) != 2 {
		return nil, fmt.Errorf("model: missing or malformed %s", ParamW2)
	}
	b1, ok := byName[ParamB1]
	if !ok {
		return nil, fmt.Errorf("model: missing %s", ParamB1)
	}
	b2, ok := byName[ParamB2]
	if !ok {
		return nil, fmt.Errorf("model: missing %s", ParamB2)
	}

	hidden, in := w1.Shape[0], w1.Shape[1]
	out := w2.Shape[0]
	if w2.Shape[1] != hidden {
		return nil, fmt.Errorf("model: %s columns %d do not match hidden size %d", ParamW2, w2.Shape[1], hidden)
	}
	if len(b1.Data) != hidden || len(b2.Data) != out {
		return nil, fmt.Errorf("model: bias lengths %d/%d do not match dims %d/%d", len(b1.Data), len(b2.Data), hidden, out)
	}

	return &MLP{
		In:     in,
		Hidden: hidden,
		Out:    out,
		W1:     tensor.NewMatFromData(hidden, in, w1.Data),
		B1:     b1.Data,
		W2:     tensor.NewMatFromData(out, hidden, w2.Data),
		B2:     b2.Data,
		h:      make([]float32, hidden),
	}, nil
}
