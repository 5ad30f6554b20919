package fixed

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/fxprep/internal/logger"
	"github.com/samcharles93/fxprep/internal/model"
	"github.com/samcharles93/fxprep/internal/train"
	"github.com/samcharles93/fxprep/pkg/quant"
)

type clusterSource struct {
	samples []LabeledSample
}

func (s *clusterSource) Dim() int { return 2 }
func (s *clusterSource) Sample(i int) ([]float32, int) {
	return s.samples[i].Pixels, s.samples[i].Label
}

func makeClusters(n int, seed int64) *clusterSource {
	rng := rand.New(rand.NewSource(seed))
	s := &clusterSource{}
	for i := 0; i < n; i++ {
		label := i % 2
		cx := float32(0.2)
		if label == 1 {
			cx = 0.8
		}
		s.samples = append(s.samples, LabeledSample{
			Pixels: []float32{
				cx + float32(rng.NormFloat64())*0.05,
				0.5 + float32(rng.NormFloat64())*0.05,
			},
			Label: label,
		})
	}
	return s
}

// TestAccuracyGate trains a small reference model, quantizes it, and checks
// the fixed-point pipeline stays within a few points of the float model on
// the same held-out samples.
func TestAccuracyGate(t *testing.T) {
	src := makeClusters(300, 21)
	trainIdx := make([]int, 240)
	for i := range trainIdx {
		trainIdx[i] = i
	}

	m := model.New(2, 8, 2, 13)
	tr := train.New(train.Config{
		Epochs:       40,
		BatchSize:    16,
		LearningRate: 0.5,
		Seed:         4,
		Progress:     io.Discard,
	}, logger.JSON(io.Discard, 0))
	if _, err := tr.Fit(m, src, trainIdx, nil); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	qm := make(quant.Model)
	for _, p := range m.Params() {
		qm[p.Name] = quant.Quantize(p)
	}
	engine, err := NewEngine(qm)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	held := src.samples[240:]
	report, err := NewVerifier(engine, m, logger.JSON(io.Discard, 0)).Run(held)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Samples != len(held) {
		t.Fatalf("samples = %d, want %d", report.Samples, len(held))
	}
	if report.ReferenceAccuracy < 0.9 {
		t.Fatalf("reference accuracy %v, training failed to converge", report.ReferenceAccuracy)
	}
	if gap := report.ReferenceAccuracy - report.Accuracy; gap > 0.05 {
		t.Fatalf("fixed-point accuracy %v trails reference %v by %v",
			report.Accuracy, report.ReferenceAccuracy, gap)
	}
	if report.RunID == "" {
		t.Fatal("report missing run id")
	}
}

func TestVerifierRejectsEmptySet(t *testing.T) {
	e := toyModel(t, 1, 0, 1, 0)
	if _, err := NewVerifier(e, nil, logger.JSON(io.Discard, 0)).Run(nil); err == nil {
		t.Fatal("expected error for empty sample set")
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	in := Report{RunID: "r-1", Samples: 10, Correct: 9, Accuracy: 0.9}
	if err := WriteReport(path, in); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out Report
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}
