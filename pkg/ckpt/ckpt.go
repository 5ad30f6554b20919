// Package ckpt reads and writes the toolchain's checkpoint container: the
// trained float32 model as named tensors in a small binary file, so the
// quantize/export/verify/serve commands can run without retraining.
//
// Layout (little-endian):
//
//	magic "FXC\x00" | major u16 | minor u16 | tensor count u32
//	per tensor: name len u16 | name | ndim u16 | dims u32... | f32 data
package ckpt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/fxprep/pkg/quant"
)

const (
	magic = "FXC\x00"

	// CurrentMajor changes only on breaking layout changes.
	CurrentMajor uint16 = 1
	CurrentMinor uint16 = 0

	headerSize  = 12
	maxNameLen  = 1 << 10
	maxDims     = 8
	maxElemsPer = 1 << 28
)

var (
	ErrInvalidMagic       = errors.New("ckpt: invalid magic")
	ErrUnsupportedVersion = errors.New("ckpt: unsupported major version")
	ErrCorruptFile        = errors.New("ckpt: corrupt file")
)

// Write stores the tensors at path, replacing any existing file.
func Write(path string, tensors []quant.Tensor) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	buf := make([]byte, 0, 1<<16)
	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint16(buf, CurrentMajor)
	buf = binary.LittleEndian.AppendUint16(buf, CurrentMinor)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tensors)))

	for _, t := range tensors {
		if len(t.Name) == 0 || len(t.Name) > maxNameLen {
			return fmt.Errorf("ckpt: bad tensor name %q", t.Name)
		}
		if len(t.Shape) == 0 || len(t.Shape) > maxDims {
			return fmt.Errorf("ckpt: tensor %s has %d dims", t.Name, len(t.Shape))
		}
		elems := 1
		for _, d := range t.Shape {
			if d <= 0 {
				return fmt.Errorf("ckpt: tensor %s has non-positive dim %d", t.Name, d)
			}
			elems *= d
		}
		if elems != len(t.Data) {
			return fmt.Errorf("ckpt: tensor %s shape implies %d elements, data has %d", t.Name, elems, len(t.Data))
		}

		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Name)))
		buf = append(buf, t.Name...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Shape)))
		for _, d := range t.Shape {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
		buf = buf[:0]

		for _, v := range t.Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
			if len(buf) >= 1<<16-4 {
				if _, err := f.Write(buf); err != nil {
					return err
				}
				buf = buf[:0]
			}
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
		buf = buf[:0]
	}
	return nil
}

// Read loads every tensor from path. The returned tensors own their data;
// any mapping used while decoding is released before returning.
func Read(path string) ([]quant.Tensor, error) {
	data, cleanup, err := readFile(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return decode(data)
}

// readFile maps the file read-only where mmap is available and falls back
// to a plain read otherwise.
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
	if size64 < headerSize || size64 > int64(int(^uint(0)>>1)) {
		return nil, nil, ErrCorruptFile
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

func decode(data []byte) ([]quant.Tensor, error) {
	if len(data) < headerSize {
		return nil, ErrCorruptFile
	}
	if string(data[:4]) != magic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(data[4:6]) != CurrentMajor {
		return nil, ErrUnsupportedVersion
	}
	count := binary.LittleEndian.Uint32(data[8:12])

	off := headerSize
	tensors := make([]quant.Tensor, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen, ok := readU16(data, &off)
		if !ok || nameLen == 0 || int(nameLen) > maxNameLen || off+int(nameLen) > len(data) {
			return nil, ErrCorruptFile
		}
		name := string(data[off : off+int(nameLen)])
		off += int(nameLen)

		ndim, ok := readU16(data, &off)
		if !ok || ndim == 0 || int(ndim) > maxDims {
			return nil, ErrCorruptFile
		}
		shape := make([]int, ndim)
		elems := 1
		for d := range shape {
			v, ok := readU32(data, &off)
			if !ok || v == 0 {
				return nil, ErrCorruptFile
			}
			shape[d] = int(v)
			elems *= int(v)
			if elems > maxElemsPer {
				return nil, ErrCorruptFile
			}
		}

		byteLen := elems * 4
		if off+byteLen > len(data) {
			return nil, ErrCorruptFile
		}
		vals := make([]float32, elems)
		for j := range vals {
			vals[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+j*4:]))
		}
		off += byteLen

		tensors = append(tensors, quant.Tensor{Name: name, Shape: shape, Data: vals})
	}
	if off != len(data) {
		return nil, ErrCorruptFile
	}
	return tensors, nil
}

func readU16(data []byte, off *int) (uint16, bool) {
	if *off+2 > len(data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(data[*off:])
	*off += 2
	return v, true
}

func readU32(data []byte, off *int) (uint32, bool) {
	if *off+4 > len(data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(data[*off:])
	*off += 4
	return v, true
}
