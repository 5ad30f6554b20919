// Package export emits the quantized model and test fixtures as C headers
// consumable by the target's integer-only runtime build.
package export

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/samcharles93/fxprep/internal/model"
	"github.com/samcharles93/fxprep/pkg/quant"
)

// Sample is one quantized regression fixture: [0,127] pixels plus the known
// label.
type Sample struct {
	Pixels []int8
	Label  int
}

// WriteWeights emits weights.h: int8 weight arrays with their scale
// constants, int32 pre-scaled bias arrays, and the dimension defines.
//
// The emitted biases are pre-scaled with the fixed input scale in place of
// the dynamic hidden rescale factor, matching the header contract of the
// downstream compiler; a runtime using the dynamic factor recomputes the
// layer-2 bias on device.
func WriteWeights(path string, qm quant.Model) (err error) {
	w1, ok := qm[model.ParamW1]
	if !ok || len(w1.Shape) != 2 {
		return fmt.Errorf("export: missing or malformed %s", model.ParamW1)
	}
	w2, ok := qm[model.ParamW2]
	if !ok || len(w2.Shape) != 2 {
		return fmt.Errorf("export: missing or malformed %s", model.ParamW2)
	}
	b1, ok := qm[model.ParamB1]
	if !ok {
		return fmt.Errorf("export: missing %s", model.ParamB1)
	}
	b2, ok := qm[model.ParamB2]
	if !ok {
		return fmt.Errorf("export: missing %s", model.ParamB2)
	}

	rb1 := quant.RescaleBias(b1, w1.Scale*quant.InputScale)
	rb2 := quant.RescaleBias(b2, w2.Scale*quant.InputScale)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "// Auto-generated by fxprep export\n")
	fmt.Fprintf(w, "// Quantized INT8 weights with pre-scaled INT32 biases\n")
	fmt.Fprintf(w, "#ifndef WEIGHTS_H\n#define WEIGHTS_H\n\n")
	fmt.Fprintf(w, "#include <stdint.h>\n\n")

	for _, q := range []quant.QuantizedTensor{w1, w2} {
		cname := cIdent(q.Name)
		fmt.Fprintf(w, "// %s: shape=%v, scale=%.6f\n", q.Name, q.Shape, q.Scale)
		fmt.Fprintf(w, "#define %s_SCALE %.6ff\n", strings.ToUpper(cname), q.Scale)
		fmt.Fprintf(w, "const int8_t %s[%d] = {\n", cname, len(q.Data))
		writeInt8Rows(w, q.Data, 16)
		fmt.Fprintf(w, "};\n\n")
	}

	for _, rb := range []quant.RescaledBias{rb1, rb2} {
		fmt.Fprintf(w, "// %s: pre-scaled to accumulator scale (bias_q * s_w * 127 / s_b)\n", rb.Name)
		fmt.Fprintf(w, "const int32_t %s[%d] = {\n", cIdent(rb.Name), len(rb.Data))
		writeInt32Rows(w, rb.Data, 8)
		fmt.Fprintf(w, "};\n\n")
	}

	fmt.Fprintf(w, "#define INPUT_SIZE %d\n", w1.Shape[1])
	fmt.Fprintf(w, "#define HIDDEN_SIZE %d\n", w1.Shape[0])
	fmt.Fprintf(w, "#define OUTPUT_SIZE %d\n\n", w2.Shape[0])
	fmt.Fprintf(w, "#endif // WEIGHTS_H\n")

	return w.Flush()
}

// WriteTestImages emits test_images.h: each quantized sample as a named
// int8 array, a pointer index over all samples, and the expected labels.
func WriteTestImages(path string, samples []Sample) (err error) {
	if len(samples) == 0 {
		return fmt.Errorf("export: no samples to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "// Auto-generated test images\n")
	fmt.Fprintf(w, "#ifndef TEST_IMAGES_H\n#define TEST_IMAGES_H\n\n")
	fmt.Fprintf(w, "#include <stdint.h>\n\n")
	fmt.Fprintf(w, "#define NUM_TEST_IMAGES %d\n\n", len(samples))

	for i, s := range samples {
		fmt.Fprintf(w, "// Test image %d: label = %d\n", i, s.Label)
		fmt.Fprintf(w, "const int8_t test_image_%d[%d] = {\n", i, len(s.Pixels))
		writeInt8Rows(w, s.Pixels, 16)
		fmt.Fprintf(w, "};\n\n")
	}

	fmt.Fprintf(w, "const int8_t* test_images[NUM_TEST_IMAGES] = {\n")
	for i := range samples {
		fmt.Fprintf(w, "    test_image_%d,\n", i)
	}
	fmt.Fprintf(w, "};\n\n")

	fmt.Fprintf(w, "const int expected_labels[NUM_TEST_IMAGES] = {\n")
	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = fmt.Sprint(s.Label)
	}
	fmt.Fprintf(w, "    %s\n", strings.Join(labels, ", "))
	fmt.Fprintf(w, "};\n\n")
	fmt.Fprintf(w, "#endif // TEST_IMAGES_H\n")

	return w.Flush()
}

func cIdent(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func writeInt8Rows(w *bufio.Writer, data []int8, perLine int) {
	for i := 0; i < len(data); i += perLine {
		end := i + perLine
		if end > len(data) {
			end = len(data)
		}
		vals := make([]string, end-i)
		for j, v := range data[i:end] {
			vals[j] = fmt.Sprint(v)
		}
		fmt.Fprintf(w, "    %s,\n", strings.Join(vals, ", "))
	}
}

func writeInt32Rows(w *bufio.Writer, data []int32, perLine int) {
	for i := 0; i < len(data); i += perLine {
		end := i + perLine
		if end > len(data) {
			end = len(data)
		}
		vals := make([]string, end-i)
		for j, v := range data[i:end] {
			vals[j] = fmt.Sprint(v)
		}
		fmt.Fprintf(w, "    %s,\n", strings.Join(vals, ", "))
	}
}
