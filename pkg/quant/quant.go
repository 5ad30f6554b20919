// Package quant implements the symmetric per-tensor int8 quantization scheme
// used to prepare models for integer-only targets.
//
// A float tensor is mapped onto [-127, 127] with a single positive scale
// factor (real ≈ integer / scale). Rounding is round-half-to-even throughout,
// matching the rounding used when the exported model is verified, so the
// integer pipeline is bit-reproducible against the reference.
package quant

import (
	"fmt"
	"math"
)

// InputScale is the fixed scale applied to [0,1] input features: a pixel
// value of 1.0 quantizes to 127.
const InputScale float32 = 127.0

// Tensor is a named float32 tensor produced by training. It is never
// mutated after construction.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

// QuantizedTensor holds the int8 image of a Tensor together with the scale
// that maps it back to real values.
type QuantizedTensor struct {
	Name  string
	Shape []int
	Data  []int8
	Scale float32
}

// Model maps parameter names (eg "fc1.weight") to their quantized tensors.
// It is built once after training and read-only afterwards.
type Model map[string]QuantizedTensor

// Quantize converts t into its int8 representation.
//
// scale = 127 / max(|x|), or 1.0 for an all-zero tensor so the division is
// defined. Every element lands in [-127, 127] by construction; Quantize
// panics instead of clipping if that invariant is ever violated, since a
// violation means the scale math itself is wrong.
func Quantize(t Tensor) QuantizedTensor {
	maxAbs := float32(0)
	for _, v := range t.Data {
		a := float32(math.Abs(float64(v)))
		if a > maxAbs {
			maxAbs = a
		}
	}

	scale := float32(1.0)
	if maxAbs > 0 {
		scale = 127.0 / maxAbs
	}

	q := QuantizedTensor{
		Name:  t.Name,
		Shape: append([]int(nil), t.Shape...),
		Data:  make([]int8, len(t.Data)),
		Scale: scale,
	}
	for i, v := range t.Data {
		r := math.RoundToEven(float64(v) * float64(scale))
		if r < -127 || r > 127 {
			panic(fmt.Sprintf("quant: %s[%d]=%v quantized to %v, outside [-127,127]", t.Name, i, v, r))
		}
		q.Data[i] = int8(r)
	}
	return q
}

// QuantizeInput maps a [0,1] float feature vector to [0,127] int8 using the
// fixed InputScale.
func QuantizeInput(x []float32) []int8 {
	q := make([]int8, len(x))
	for i, v := range x {
		q[i] = int8(math.RoundToEven(float64(v) * float64(InputScale)))
	}
	return q
}

// Dequantize returns the real value represented by element i.
func (q QuantizedTensor) Dequantize(i int) float32 {
	return float32(q.Data[i]) / q.Scale
}

// Elems returns the number of elements implied by the tensor shape.
func (q QuantizedTensor) Elems() int {
	n := 1
	for _, d := range q.Shape {
		n *= d
	}
	return n
}
