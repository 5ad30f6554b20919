// Package train fits the floating-point reference model with minibatch
// gradient descent on softmax cross-entropy. Training is deliberately plain
// supervised learning; all the numerical risk in this toolchain lives in the
// quantization stage, not here.
package train

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/samcharles93/fxprep/internal/logger"
	"github.com/samcharles93/fxprep/internal/model"
)

// Source provides training samples: [0,1] float vectors plus labels.
// *mnist.Dataset satisfies it.
type Source interface {
	Dim() int
	Sample(i int) ([]float32, int)
}

// Config controls one training run. Zero values fall back to the defaults
// used for the reference MNIST model.
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float32
	Momentum     float32
	Seed         int64

	// Progress receives the epoch progress bar; defaults to stderr.
	Progress io.Writer
}

func (c Config) withDefaults() Config {
	if c.Epochs == 0 {
		c.Epochs = 15
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.1
	}
	if c.Momentum == 0 {
		c.Momentum = 0.9
	}
	if c.Progress == nil {
		c.Progress = os.Stderr
	}
	return c
}

// Trainer fits an MLP in place.
type Trainer struct {
	cfg Config
	log logger.Logger
}

func New(cfg Config, log logger.Logger) *Trainer {
	if log == nil {
		log = logger.Default()
	}
	return &Trainer{cfg: cfg.withDefaults(), log: log}
}

// Fit trains m over trainIdx for the configured number of epochs, reporting
// validation accuracy over valIdx after each epoch. It returns the final
// validation accuracy. Identical seeds produce identical models.
func (t *Trainer) Fit(m *model.MLP, src Source, trainIdx, valIdx []int) (float64, error) {
	if src.Dim() != m.In {
		return 0, fmt.Errorf("train: data dim %d, model expects %d", src.Dim(), m.In)
	}
	if len(trainIdx) == 0 {
		return 0, fmt.Errorf("train: empty training split")
	}

	rng := rand.New(rand.NewSource(t.cfg.Seed))
	order := append([]int(nil), trainIdx...)

	s := newState(m)
	bar := progressbar.NewOptions(t.cfg.Epochs,
		progressbar.OptionSetDescription("training"),
		progressbar.OptionSetWriter(t.cfg.Progress),
		progressbar.OptionShowCount(),
	)

	valAcc := 0.0
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		totalLoss := 0.0
		for start := 0; start < len(order); start += t.cfg.BatchSize {
			end := start + t.cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			s.zeroGrads()
			for _, idx := range order[start:end] {
				x, label := src.Sample(idx)
				totalLoss += s.accumulate(m, x, label)
			}
			s.step(m, t.cfg.LearningRate/float32(end-start), t.cfg.Momentum)
		}

		valAcc = evaluate(m, src, valIdx)
		_ = bar.Add(1)
		t.log.Info("epoch complete",
			"epoch", epoch+1,
			"loss", totalLoss,
			"val_accuracy", valAcc)
	}
	return valAcc, nil
}

func evaluate(m *model.MLP, src Source, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	correct := 0
	for _, i := range idx {
		x, label := src.Sample(i)
		if m.Predict(x) == label {
			correct++
		}
	}
	return float64(correct) / float64(len(idx))
}

// state holds gradient and momentum buffers plus forward scratch.
type state struct {
	z1, a1    []float32
	z2, probs []float32
	dz1, dz2  []float32
	gW1, gB1  []float32
	gW2, gB2  []float32
	vW1, vB1  []float32
	vW2, vB2  []float32
}

func newState(m *model.MLP) *state {
	return &state{
		z1:    make([]float32, m.Hidden),
		a1:    make([]float32, m.Hidden),
		z2:    make([]float32, m.Out),
		probs: make([]float32, m.Out),
		dz1:   make([]float32, m.Hidden),
		dz2:   make([]float32, m.Out),
		gW1:   make([]float32, m.Hidden*m.In),
		gB1:   make([]float32, m.Hidden),
		gW2:   make([]float32, m.Out*m.Hidden),
		gB2:   make([]float32, m.Out),
		vW1:   make([]float32, m.Hidden*m.In),
		vB1:   make([]float32, m.Hidden),
		vW2:   make([]float32, m.Out*m.Hidden),
		vB2:   make([]float32, m.Out),
	}
}

func (s *state) zeroGrads() {
	clear(s.gW1)
	clear(s.gB1)
	clear(s.gW2)
	clear(s.gB2)
}

// accumulate runs one forward/backward pass and adds the gradients into the
// state buffers. It returns the sample's cross-entropy loss.
func (s *state) accumulate(m *model.MLP, x []float32, label int) float64 {
	// Forward, keeping pre-activations for the backward pass.
	for i := 0; i < m.Hidden; i++ {
		row := m.W1.Row(i)
		acc := m.B1[i]
		for j, w := range row {
			acc += w * x[j]
		}
		s.z1[i] = acc
		if acc > 0 {
			s.a1[i] = acc
		} else {
			s.a1[i] = 0
		}
	}
	for i := 0; i < m.Out; i++ {
		row := m.W2.Row(i)
		acc := m.B2[i]
		for j, w := range row {
			acc += w * s.a1[j]
		}
		s.z2[i] = acc
	}

	loss := softmax(s.z2, s.probs, label)

	// Backward: dz2 = probs - onehot(label).
	copy(s.dz2, s.probs)
	s.dz2[label] -= 1

	for i := 0; i < m.Out; i++ {
		d := s.dz2[i]
		s.gB2[i] += d
		g := s.gW2[i*m.Hidden : (i+1)*m.Hidden]
		for j, a := range s.a1 {
			g[j] += d * a
		}
	}

	// da1 through W2, masked by the ReLU derivative.
	for j := 0; j < m.Hidden; j++ {
		if s.z1[j] <= 0 {
			s.dz1[j] = 0
			continue
		}
		var d float32
		for i := 0; i < m.Out; i++ {
			d += m.W2.Data[i*m.Hidden+j] * s.dz2[i]
		}
		s.dz1[j] = d
	}

	for i := 0; i < m.Hidden; i++ {
		d := s.dz1[i]
		if d == 0 {
			continue
		}
		s.gB1[i] += d
		g := s.gW1[i*m.In : (i+1)*m.In]
		for j, v := range x {
			g[j] += d * v
		}
	}
	return loss
}

// step applies one momentum SGD update with the per-sample-averaged rate.
func (s *state) step(m *model.MLP, lr, momentum float32) {
	update := func(w, g, v []float32) {
		for i := range w {
			v[i] = momentum*v[i] - lr*g[i]
			w[i] += v[i]
		}
	}
	update(m.W1.Data, s.gW1, s.vW1)
	update(m.B1, s.gB1, s.vB1)
	update(m.W2.Data, s.gW2, s.vW2)
	update(m.B2, s.gB2, s.vB2)
}

// softmax writes the class probabilities for logits into probs and returns
// the cross-entropy loss against label.
func softmax(logits, probs []float32, label int) float64 {
	maxv := logits[0]
	for _, v := range logits[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxv))
		probs[i] = float32(e)
		sum += e
	}
	inv := 1.0 / sum
	for i := range probs {
		probs[i] = float32(float64(probs[i]) * inv)
	}
	p := float64(probs[label])
	if p < 1e-12 {
		p = 1e-12
	}
	return -math.Log(p)
}
