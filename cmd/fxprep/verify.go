package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fxprep/internal/fixed"
	"github.com/samcharles93/fxprep/internal/mnist"
	"github.com/samcharles93/fxprep/internal/model"
)

func verifyCmd() *cli.Command {
	var (
		samples    int64
		reportPath string
	)

	flags := append(commonModelFlags(), dataFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "samples",
			Aliases:     []string{"n"},
			Usage:       "number of held-out test samples to verify",
			Value:       1000,
			Destination: &samples,
		},
		&cli.StringFlag{
			Name:        "report",
			Usage:       "write the verification report JSON to this path",
			Destination: &reportPath,
		},
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Run the fixed-point pipeline over held-out samples and gate accuracy",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := newLogger()

			qm, params, err := loadQuantized(checkpointPath)
			if err != nil {
				return err
			}
			ref, err := model.FromParams(params)
			if err != nil {
				return err
			}
			engine, err := fixed.NewEngine(qm)
			if err != nil {
				return err
			}

			images, labels := mnist.TestPaths(dataDir)
			ds, err := mnist.Load(images, labels)
			if err != nil {
				return fmt.Errorf("load test set: %w", err)
			}
			n := int(samples)
			if n > ds.Len() {
				n = ds.Len()
			}
			set := make([]fixed.LabeledSample, n)
			for i := 0; i < n; i++ {
				x, label := ds.Sample(i)
				set[i] = fixed.LabeledSample{Pixels: x, Label: label}
			}

			report, err := fixed.NewVerifier(engine, ref, log).Run(set)
			if err != nil {
				return err
			}
			if reportPath != "" {
				if err := fixed.WriteReport(reportPath, report); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				log.Info("report written", "path", reportPath)
			}
			return nil
		},
	}
}
