package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fxprep/pkg/ckpt"
	"github.com/samcharles93/fxprep/pkg/quant"
)

// loadQuantized reads the checkpoint and quantizes every parameter.
func loadQuantized(path string) (quant.Model, []quant.Tensor, error) {
	params, err := ckpt.Read(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read checkpoint: %w", err)
	}
	qm := make(quant.Model, len(params))
	for _, p := range params {
		qm[p.Name] = quant.Quantize(p)
	}
	return qm, params, nil
}

func quantizeCmd() *cli.Command {
	flags := append(commonModelFlags(), loggingFlags()...)

	return &cli.Command{
		Name:  "quantize",
		Usage: "Quantize a checkpoint and report per-tensor scales and ranges",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := newLogger()

			qm, params, err := loadQuantized(checkpointPath)
			if err != nil {
				return err
			}
			for _, p := range params {
				q := qm[p.Name]
				lo, hi := int8(127), int8(-127)
				for _, v := range q.Data {
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
				log.Info("quantized tensor",
					"name", q.Name,
					"shape", fmt.Sprint(q.Shape),
					"scale", q.Scale,
					"min", lo,
					"max", hi)
			}
			return nil
		},
	}
}
