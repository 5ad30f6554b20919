package hexword

import (
	"bytes"
	"strings"
	"testing"
)

func convert(t *testing.T, in []byte, width int) string {
	t.Helper()
	var out bytes.Buffer
	if err := Convert(bytes.NewReader(in), &out, width); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return out.String()
}

func TestConvertWord(t *testing.T) {
	got := convert(t, []byte{0xde, 0xad, 0xbe, 0xef}, 32)
	if got != "efbeadde\n" {
		t.Fatalf("got %q, want %q", got, "efbeadde\n")
	}
}

func TestConvertPadsShortTail(t *testing.T) {
	got := convert(t, []byte{0x01, 0x02}, 32)
	if got != "00000201\n" {
		t.Fatalf("got %q, want %q", got, "00000201\n")
	}
}

func TestConvertMultipleWords(t *testing.T) {
	got := convert(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 32)
	want := "04030201\n08070605\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertWidth64(t *testing.T) {
	got := convert(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 64)
	if got != "0807060504030201\n" {
		t.Fatalf("got %q", got)
	}
}

func TestConvertWidth8(t *testing.T) {
	got := convert(t, []byte{0xab, 0x00, 0x7f}, 8)
	if got != "ab\n00\n7f\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWidthBytesFloor(t *testing.T) {
	cases := map[int]int{4: 1, 8: 1, 12: 1, 16: 2, 32: 4, 33: 4, 128: 16}
	for bits, want := range cases {
		if got := WidthBytes(bits); got != want {
			t.Fatalf("WidthBytes(%d) = %d, want %d", bits, got, want)
		}
	}
}

func TestConvertEmptyInput(t *testing.T) {
	if got := convert(t, nil, 32); got != "" {
		t.Fatalf("empty input produced %q", got)
	}
}

func TestConvertLowercase(t *testing.T) {
	got := convert(t, []byte{0xAB, 0xCD, 0xEF, 0x1A}, 32)
	if got != strings.ToLower(got) {
		t.Fatalf("output not lowercase: %q", got)
	}
}
