package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fxprep/internal/export"
	"github.com/samcharles93/fxprep/internal/mnist"
	"github.com/samcharles93/fxprep/pkg/quant"
)

func exportCmd() *cli.Command {
	var (
		outDir    string
		numImages int64
	)

	flags := append(commonModelFlags(), dataFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "directory for the generated headers",
			Value:       "runtime",
			Destination: &outDir,
		},
		&cli.Int64Flag{
			Name:        "num-images",
			Usage:       "number of test images to embed as fixtures",
			Value:       100,
			Destination: &numImages,
		},
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Emit weights.h and test_images.h for the target runtime build",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			if cfg.OutDir != "" && !cmd.IsSet("out") {
				outDir = cfg.OutDir
			}
			log := newLogger()

			qm, _, err := loadQuantized(checkpointPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			weightsPath := filepath.Join(outDir, "weights.h")
			if err := export.WriteWeights(weightsPath, qm); err != nil {
				return err
			}
			log.Info("weights exported", "path", weightsPath)

			images, labels := mnist.TestPaths(dataDir)
			ds, err := mnist.Load(images, labels)
			if err != nil {
				return fmt.Errorf("load test set: %w", err)
			}
			n := int(numImages)
			if n > ds.Len() {
				n = ds.Len()
			}
			samples := make([]export.Sample, n)
			for i := 0; i < n; i++ {
				x, label := ds.Sample(i)
				samples[i] = export.Sample{Pixels: quant.QuantizeInput(x), Label: label}
			}

			imagesPath := filepath.Join(outDir, "test_images.h")
			if err := export.WriteTestImages(imagesPath, samples); err != nil {
				return err
			}
			log.Info("test images exported", "path", imagesPath, "count", n)
			return nil
		},
	}
}
