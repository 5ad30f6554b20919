// Package mnist loads IDX-format image and label files (the MNIST layout)
// and exposes samples as [0,1] float vectors with ground-truth labels.
package mnist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	magicImages uint32 = 0x00000803
	magicLabels uint32 = 0x00000801
)

var (
	ErrBadMagic  = errors.New("mnist: bad idx magic")
	ErrTruncated = errors.New("mnist: truncated idx file")
	ErrMismatch  = errors.New("mnist: image/label counts differ")
)

// Dataset is an immutable labeled image set. Pixels are stored raw and
// normalized on access.
type Dataset struct {
	pix    []byte
	labels []byte
	n      int
	rows   int
	cols   int
}

// TrainPaths returns the conventional train file names under dir.
func TrainPaths(dir string) (images, labels string) {
	return filepath.Join(dir, "train-images-idx3-ubyte"),
		filepath.Join(dir, "train-labels-idx1-ubyte")
}

// TestPaths returns the conventional test file names under dir.
func TestPaths(dir string) (images, labels string) {
	return filepath.Join(dir, "t10k-images-idx3-ubyte"),
		filepath.Join(dir, "t10k-labels-idx1-ubyte")
}

// Load reads an idx3 image file and its idx1 label file.
func Load(imagesPath, labelsPath string) (*Dataset, error) {
	img, cleanupImg, err := readFile(imagesPath)
	if err != nil {
		return nil, err
	}
	defer cleanupImg()
	lab, cleanupLab, err := readFile(labelsPath)
	if err != nil {
		return nil, err
	}
	defer cleanupLab()

	if len(img) < 16 || len(lab) < 8 {
		return nil, ErrTruncated
	}
	if binary.BigEndian.Uint32(img) != magicImages {
		return nil, fmt.Errorf("%w: %#x in %s", ErrBadMagic, binary.BigEndian.Uint32(img), imagesPath)
	}
	if binary.BigEndian.Uint32(lab) != magicLabels {
		return nil, fmt.Errorf("%w: %#x in %s", ErrBadMagic, binary.BigEndian.Uint32(lab), labelsPath)
	}

	n := int(binary.BigEndian.Uint32(img[4:]))
	rows := int(binary.BigEndian.Uint32(img[8:]))
	cols := int(binary.BigEndian.Uint32(img[12:]))
	if n != int(binary.BigEndian.Uint32(lab[4:])) {
		return nil, ErrMismatch
	}
	if len(img) < 16+n*rows*cols || len(lab) < 8+n {
		return nil, ErrTruncated
	}

	// The mapping is released on return, so copy out what we keep.
	d := &Dataset{
		pix:    append([]byte(nil), img[16:16+n*rows*cols]...),
		labels: append([]byte(nil), lab[8:8+n]...),
		n:      n,
		rows:   rows,
		cols:   cols,
	}
	return d, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return d.n }

// Dim returns the flattened pixel count per sample.
func (d *Dataset) Dim() int { return d.rows * d.cols }

// Sample returns the i-th image as a [0,1] float vector plus its label.
// The slice is freshly allocated.
func (d *Dataset) Sample(i int) ([]float32, int) {
	if i < 0 || i >= d.n {
		panic("mnist: sample index out of range")
	}
	dim := d.rows * d.cols
	x := make([]float32, dim)
	raw := d.pix[i*dim : (i+1)*dim]
	for j, p := range raw {
		x[j] = float32(p) / 255.0
	}
	return x, int(d.labels[i])
}

// Split shuffles sample indices with the given seed and splits off nVal of
// them for validation, matching the held-out scheme used during training.
func (d *Dataset) Split(nVal int, seed int64) (train, val []int) {
	if nVal < 0 || nVal > d.n {
		panic("mnist: invalid validation split size")
	}
	idx := rand.New(rand.NewSource(seed)).Perm(d.n)
	return idx[nVal:], idx[:nVal]
}

// readFile maps the file read-only where mmap is available, falling back
// to a plain read.
func readFile(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size64 := stat.Size()
	if size64 <= 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, nil, ErrTruncated
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size64), unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return data, func() { _ = unix.Munmap(data) }, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return buf, func() {}, nil
}
