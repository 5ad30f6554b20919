package ckpt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/fxprep/pkg/quant"
)

func writeTemp(t *testing.T, tensors []quant.Tensor) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.fxc")
	if err := Write(path, tensors); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestWriteReadRoundTrip(t *testing.T) {
	in := []quant.Tensor{
		{Name: "fc1.weight", Shape: []int{2, 3}, Data: []float32{1, -2, 3.5, 0, 0.25, -0.125}},
		{Name: "fc1.bias", Shape: []int{2}, Data: []float32{0.5, -0.5}},
	}
	path := writeTemp(t, in)

	out, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d tensors, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Name != in[i].Name {
			t.Fatalf("tensor %d name %q, want %q", i, out[i].Name, in[i].Name)
		}
		if len(out[i].Shape) != len(in[i].Shape) {
			t.Fatalf("tensor %d ndim mismatch", i)
		}
		for d := range in[i].Shape {
			if out[i].Shape[d] != in[i].Shape[d] {
				t.Fatalf("tensor %d dim %d = %d, want %d", i, d, out[i].Shape[d], in[i].Shape[d])
			}
		}
		for j := range in[i].Data {
			if out[i].Data[j] != in[i].Data[j] {
				t.Fatalf("tensor %d element %d = %v, want %v", i, j, out[i].Data[j], in[i].Data[j])
			}
		}
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.fxc")
	if err := os.WriteFile(path, []byte("NOPE\x01\x00\x00\x00\x00\x00\x00\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestReadRejectsTruncated(t *testing.T) {
	in := []quant.Tensor{{Name: "w", Shape: []int{4}, Data: []float32{1, 2, 3, 4}}}
	path := writeTemp(t, in)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	short := filepath.Join(t.TempDir(), "short.fxc")
	if err := os.WriteFile(short, data[:len(data)-6], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(short); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("err = %v, want ErrCorruptFile", err)
	}
}

func TestWriteRejectsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.fxc")
	err := Write(path, []quant.Tensor{{Name: "w", Shape: []int{3}, Data: []float32{1, 2}}})
	if err == nil {
		t.Fatal("expected error for shape/data mismatch")
	}
}
