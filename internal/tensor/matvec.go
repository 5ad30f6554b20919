package tensor

// MatVec computes dst = w * x.
//
// The matrices involved here are a few hundred rows at most, so this is a
// plain single-threaded loop; the whole preparation pipeline is a bounded
// batch computation and gains nothing from parallel dispatch.
func MatVec(dst []float32, w *Mat, x []float32) {
	if w.R == 0 || w.C == 0 {
		return
	}
	if len(dst) < w.R || len(x) < w.C {
		panic("matvec shape mismatch")
	}
	for i := 0; i < w.R; i++ {
		row := w.Data[i*w.Stride : i*w.Stride+w.C]
		var acc float32
		for j, v := range row {
			acc += v * x[j]
		}
		dst[i] = acc
	}
}

// AddVec adds b into dst elementwise.
func AddVec(dst, b []float32) {
	if len(dst) < len(b) {
		panic("addvec shape mismatch")
	}
	for i, v := range b {
		dst[i] += v
	}
}
