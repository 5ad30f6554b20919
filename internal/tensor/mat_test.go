package tensor

import (
	"math"
	"testing"
)

func TestMatVec(t *testing.T) {
	w := NewMatFromData(2, 3, []float32{
		1, 2, 3,
		4, 5, 6,
	})
	x := []float32{1, 0, -1}
	dst := make([]float32, 2)
	MatVec(dst, &w, x)

	want := []float32{-2, -2}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRowView(t *testing.T) {
	m := NewMat(3, 2)
	m.Row(1)[0] = 5
	if m.Data[2] != 5 {
		t.Fatalf("row view did not alias underlying data")
	}
}

func TestFillXavierDeterministic(t *testing.T) {
	a := NewMat(4, 8)
	b := NewMat(4, 8)
	FillXavier(&a, 42)
	FillXavier(&b, 42)

	limit := math.Sqrt(6.0 / 12.0)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("element %d differs across identical seeds", i)
		}
		if math.Abs(float64(a.Data[i])) > limit {
			t.Fatalf("element %d = %v outside [-%v, %v]", i, a.Data[i], limit, limit)
		}
	}
}
