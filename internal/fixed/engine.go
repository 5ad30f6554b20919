// Package fixed executes the two-layer classifier entirely in integer
// arithmetic, the way the target's runtime does: int8 weights, int32
// accumulation, pre-scaled int32 biases, and a dynamic per-call rescale of
// the hidden activations back into int8 range.
//
// The hidden rescale factor is recomputed on every Predict call from that
// call's actual activation magnitudes. It is not a calibration constant, and
// the second layer's bias must be rescaled with the same per-call factor or
// results silently corrupt. A target whose rounding mode differs from
// round-half-to-even must be re-verified, since the accuracy measured here
// assumes that rule.
package fixed

import (
	"fmt"
	"math"

	"github.com/samcharles93/fxprep/internal/model"
	"github.com/samcharles93/fxprep/pkg/quant"
)

// Engine runs fixed-point inference over one quantized model. It is built
// once and safe for repeated Predict calls; nothing in it mutates after
// construction except the scratch buffers, so a single goroutine drives it.
type Engine struct {
	in, hidden, out int

	w1    []int8
	w2    []int8
	bias1 []int32               // pre-scaled to sW1 * InputScale once
	bias2 quant.QuantizedTensor // kept at native scale, rescaled per call
	sW2   float32

	hraw   []int32 // layer-1 accumulator scratch
	scores []int32 // layer-2 accumulator scratch
}

// Result holds one inference outcome: the raw int32 class scores, the argmax
// label (ties to the lowest index), and the hidden rescale factor chosen for
// this call.
type Result struct {
	Scores      []int32
	Label       int
	HiddenScale float32
}

// NewEngine validates the quantized model's shapes and precomputes the
// layer-1 bias at its accumulator scale. Layer sizes are taken from the
// weight shapes, not hardcoded.
func NewEngine(m quant.Model) (*Engine, error) {
	w1, ok := m[model.ParamW1]
	if !ok || len(w1.Shape) != 2 {
		return nil, fmt.Errorf("fixed: missing or malformed %s", model.ParamW1)
	}
	w2, ok := m[model.ParamW2]
	if !ok || len(w2.Shape) != 2 {
		return nil, fmt.Errorf("fixed: missing or malformed %s", model.ParamW2)
	}
	b1, ok := m[model.ParamB1]
	if !ok {
		return nil, fmt.Errorf("fixed: missing %s", model.ParamB1)
	}
	b2, ok := m[model.ParamB2]
	if !ok {
		return nil, fmt.Errorf("fixed: missing %s", model.ParamB2)
	}

	hidden, in := w1.Shape[0], w1.Shape[1]
	out := w2.Shape[0]
	if w2.Shape[1] != hidden {
		return nil, fmt.Errorf("fixed: %s columns %d do not match hidden size %d", model.ParamW2, w2.Shape[1], hidden)
	}
	if len(w1.Data) != hidden*in || len(w2.Data) != out*hidden {
		return nil, fmt.Errorf("fixed: weight data lengths do not match shapes")
	}
	if len(b1.Data) != hidden || len(b2.Data) != out {
		return nil, fmt.Errorf("fixed: bias lengths %d/%d do not match dims %d/%d", len(b1.Data), len(b2.Data), hidden, out)
	}

	rb1 := quant.RescaleBias(b1, w1.Scale*quant.InputScale)

	return &Engine{
		in:     in,
		hidden: hidden,
		out:    out,
		w1:     w1.Data,
		w2:     w2.Data,
		bias1:  rb1.Data,
		bias2:  b2,
		sW2:    w2.Scale,
		hraw:   make([]int32, hidden),
		scores: make([]int32, out),
	}, nil
}

// Dims returns the input, hidden, and output sizes.
func (e *Engine) Dims() (in, hidden, out int) {
	return e.in, e.hidden, e.out
}

// Predict classifies one quantized sample. The input must already be mapped
// to [0,127]; a length mismatch is a contract violation and panics.
//
// The hot path is integer-only. Floating point appears solely in the two
// rescale-factor computations per call, which a real target precomputes or
// approximates on-device.
func (e *Engine) Predict(x []int8) Result {
	if len(x) != e.in {
		panic(fmt.Sprintf("fixed: input length %d, engine expects %d", len(x), e.in))
	}

	// Layer 1 accumulation: worst case in*127*127 per unit, well inside
	// int32 before the bias add.
	matVecInt8(e.hraw, e.w1, x, e.hidden, e.in)
	for i := range e.hraw {
		e.hraw[i] += e.bias1[i]
		if e.hraw[i] < 0 {
			e.hraw[i] = 0
		}
	}

	// Dynamic rescale of the hidden activations back into int8 range.
	hMax := int32(1)
	for _, v := range e.hraw {
		a := v
		if a < 0 {
			a = -a
		}
		if a > hMax {
			hMax = a
		}
	}
	hScale := float32(127.0) / float32(hMax)
	hq := make([]int8, e.hidden)
	for i, v := range e.hraw {
		hq[i] = int8(math.RoundToEven(float64(v) * float64(hScale)))
	}

	// Layer 2, with the bias expressed at this call's accumulator scale.
	rb2 := quant.RescaleBias(e.bias2, e.sW2*hScale)
	matVecInt8(e.scores, e.w2, hq, e.out, e.hidden)
	for i := range e.scores {
		e.scores[i] += rb2.Data[i]
	}

	best := 0
	for i := 1; i < e.out; i++ {
		if e.scores[i] > e.scores[best] {
			best = i
		}
	}

	return Result{
		Scores:      append([]int32(nil), e.scores...),
		Label:       best,
		HiddenScale: hScale,
	}
}

// matVecInt8 computes dst = w*x over int8 operands with int32 accumulation.
// w is row-major [rows x cols].
func matVecInt8(dst []int32, w, x []int8, rows, cols int) {
	for i := 0; i < rows; i++ {
		row := w[i*cols : i*cols+cols]
		var acc int32
		for j, v := range row {
			acc += int32(v) * int32(x[j])
		}
		dst[i] = acc
	}
}
