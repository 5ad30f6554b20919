// Package hexword converts raw binary into the textual word format the
// simulator's memory loader parses: one lowercase hex word per line, most
// significant byte first.
//
// The source binary is little-endian in memory while the loader consumes
// strings MSB-first, so each word's bytes are emitted in reverse order:
// bytes 01 02 03 04 at width 32 become the line "04030201".
package hexword

import (
	"bufio"
	"encoding/hex"
	"io"
)

// WidthBytes converts a width in bits to whole bytes, with a floor of one
// byte.
func WidthBytes(widthBits int) int {
	wb := widthBits / 8
	if wb < 1 {
		wb = 1
	}
	return wb
}

// Convert reads r in widthBits-sized chunks and writes one hex word line
// per chunk to w. A short final chunk is zero-padded at its tail, so the
// padding lands in the most significant character positions.
func Convert(r io.Reader, w io.Writer, widthBits int) error {
	wb := WidthBytes(widthBits)
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	chunk := make([]byte, wb)
	line := make([]byte, wb*2+1)
	for {
		n, err := io.ReadFull(br, chunk)
		if n == 0 {
			if err == io.EOF {
				break
			}
			if err != nil && err != io.ErrUnexpectedEOF {
				return err
			}
			break
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		for i := n; i < wb; i++ {
			chunk[i] = 0
		}

		for i := 0; i < wb; i++ {
			hex.Encode(line[i*2:], chunk[wb-1-i:wb-i])
		}
		line[wb*2] = '\n'
		if _, err := bw.Write(line); err != nil {
			return err
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
	}
	return bw.Flush()
}
