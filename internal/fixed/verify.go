package fixed

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samcharles93/fxprep/internal/logger"
	"github.com/samcharles93/fxprep/internal/model"
	"github.com/samcharles93/fxprep/pkg/quant"
)

// LabeledSample is one held-out example: [0,1] float pixels plus the ground
// truth class.
type LabeledSample struct {
	Pixels []float32
	Label  int
}

// Report summarises one verification run. Gap is the fixed-point accuracy
// minus the float reference accuracy; a large negative gap means the
// quantization or rescaling is defective, not an acceptable approximation.
type Report struct {
	RunID             string  `json:"run_id"`
	Samples           int     `json:"samples"`
	Correct           int     `json:"correct"`
	Accuracy          float64 `json:"accuracy"`
	ReferenceCorrect  int     `json:"reference_correct"`
	ReferenceAccuracy float64 `json:"reference_accuracy"`
	Gap               float64 `json:"gap"`
}

// Verifier gates deployment: it runs the fixed-point engine over a labeled
// sample set and compares against ground truth and the float reference.
type Verifier struct {
	engine *Engine
	ref    *model.MLP
	log    logger.Logger
}

// NewVerifier creates a verifier. ref may be nil, in which case only the
// fixed-point accuracy is reported.
func NewVerifier(engine *Engine, ref *model.MLP, log logger.Logger) *Verifier {
	if log == nil {
		log = logger.Default()
	}
	return &Verifier{engine: engine, ref: ref, log: log}
}

// Run classifies every sample with the fixed-point engine (and the float
// reference when present) and aggregates accuracy.
func (v *Verifier) Run(samples []LabeledSample) (Report, error) {
	if len(samples) == 0 {
		return Report{}, fmt.Errorf("fixed: no samples to verify")
	}

	report := Report{
		RunID:   uuid.NewString(),
		Samples: len(samples),
	}
	for i, s := range samples {
		res := v.engine.Predict(quant.QuantizeInput(s.Pixels))
		if res.Label == s.Label {
			report.Correct++
		}
		if v.ref != nil && v.ref.Predict(s.Pixels) == s.Label {
			report.ReferenceCorrect++
		}
		if res.Label != s.Label {
			v.log.Debug("misclassified sample",
				"index", i, "predicted", res.Label, "expected", s.Label,
				"hidden_scale", res.HiddenScale)
		}
	}

	report.Accuracy = float64(report.Correct) / float64(report.Samples)
	if v.ref != nil {
		report.ReferenceAccuracy = float64(report.ReferenceCorrect) / float64(report.Samples)
		report.Gap = report.Accuracy - report.ReferenceAccuracy
	}

	v.log.Info("verification complete",
		"run_id", report.RunID,
		"samples", report.Samples,
		"accuracy", report.Accuracy,
		"reference_accuracy", report.ReferenceAccuracy,
		"gap", report.Gap)
	return report, nil
}

// WriteReport writes a verification report as indented JSON.
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
