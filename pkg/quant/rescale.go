package quant

import "math"

// RescaledBias is a bias vector re-expressed at the implicit scale of a
// specific downstream integer accumulation. It is only valid for the
// accumulation it was derived for; biases rescaled for layer 1 cannot be
// reused in layer 2.
type RescaledBias struct {
	Name        string
	Data        []int32
	TargetScale float32
}

// Rescale converts an integer v representing a real quantity at scale `from`
// into the integer representing the same quantity at scale `to`:
//
//	round(v * to / from)
//
// with ties to even. v is taken as int64 and the multiply is carried out in
// float64, so bias magnitudes times large scale ratios cannot overflow the
// narrow source type before conversion.
func Rescale(v int64, from, to float32) int32 {
	return int32(math.RoundToEven(float64(v) * float64(to) / float64(from)))
}

// RescaleBias re-expresses a quantized bias at targetScale, the implicit
// scale of the accumulator it will be added into. For the first layer the
// target is weightScale*InputScale; for the second it is weightScale*hScale
// with the hidden rescale factor of the current inference call.
func RescaleBias(bias QuantizedTensor, targetScale float32) RescaledBias {
	out := RescaledBias{
		Name:        bias.Name,
		Data:        make([]int32, len(bias.Data)),
		TargetScale: targetScale,
	}
	for i, v := range bias.Data {
		out.Data[i] = Rescale(int64(v), bias.Scale, targetScale)
	}
	return out
}
