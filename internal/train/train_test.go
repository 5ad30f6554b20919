package train

import (
	"io"
	"math/rand"
	"testing"

	"github.com/samcharles93/fxprep/internal/model"
)

// clusterSource is an in-memory dataset of two well-separated 2D clusters.
type clusterSource struct {
	xs     [][]float32
	labels []int
}

func (s *clusterSource) Dim() int                      { return 2 }
func (s *clusterSource) Sample(i int) ([]float32, int) { return s.xs[i], s.labels[i] }

func makeClusters(n int, seed int64) *clusterSource {
	rng := rand.New(rand.NewSource(seed))
	s := &clusterSource{}
	for i := 0; i < n; i++ {
		label := i % 2
		cx := float32(0.2)
		if label == 1 {
			cx = 0.8
		}
		x := []float32{
			cx + float32(rng.NormFloat64())*0.05,
			0.5 + float32(rng.NormFloat64())*0.05,
		}
		s.xs = append(s.xs, x)
		s.labels = append(s.labels, label)
	}
	return s
}

func indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func TestFitLearnsSeparableClusters(t *testing.T) {
	src := makeClusters(240, 1)
	trainIdx := indices(200)
	valIdx := indices(240)[200:]

	m := model.New(2, 8, 2, 3)
	tr := New(Config{
		Epochs:       40,
		BatchSize:    16,
		LearningRate: 0.5,
		Seed:         5,
		Progress:     io.Discard,
	}, nil)

	acc, err := tr.Fit(m, src, trainIdx, valIdx)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if acc < 0.9 {
		t.Fatalf("validation accuracy %v after training, want >= 0.9", acc)
	}
}

func TestFitDeterministic(t *testing.T) {
	src := makeClusters(60, 2)
	idx := indices(60)

	cfg := Config{Epochs: 3, BatchSize: 8, LearningRate: 0.2, Seed: 9, Progress: io.Discard}
	m1 := model.New(2, 4, 2, 7)
	m2 := model.New(2, 4, 2, 7)

	if _, err := New(cfg, nil).Fit(m1, src, idx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := New(cfg, nil).Fit(m2, src, idx, nil); err != nil {
		t.Fatal(err)
	}
	for i := range m1.W1.Data {
		if m1.W1.Data[i] != m2.W1.Data[i] {
			t.Fatalf("W1[%d] differs across identical seeds", i)
		}
	}
}

func TestFitRejectsDimMismatch(t *testing.T) {
	src := makeClusters(10, 1)
	m := model.New(3, 4, 2, 1)
	if _, err := New(Config{Progress: io.Discard}, nil).Fit(m, src, indices(10), nil); err == nil {
		t.Fatal("expected error for dim mismatch")
	}
}
