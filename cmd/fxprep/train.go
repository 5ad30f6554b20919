package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fxprep/internal/mnist"
	"github.com/samcharles93/fxprep/internal/model"
	"github.com/samcharles93/fxprep/internal/train"
	"github.com/samcharles93/fxprep/pkg/ckpt"
)

func trainCmd() *cli.Command {
	var (
		epochs    int64
		batchSize int64
		lr        float64
		momentum  float64
		hidden    int64
		classes   int64
		valSplit  int64
		seed      int64
	)

	flags := append(commonModelFlags(), dataFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{Name: "epochs", Usage: "training epochs", Value: 15, Destination: &epochs},
		&cli.Int64Flag{Name: "batch-size", Usage: "minibatch size", Value: 64, Destination: &batchSize},
		&cli.Float64Flag{Name: "lr", Aliases: []string{"learning-rate"}, Usage: "learning rate", Value: 0.1, Destination: &lr},
		&cli.Float64Flag{Name: "momentum", Usage: "SGD momentum", Value: 0.9, Destination: &momentum},
		&cli.Int64Flag{Name: "hidden", Usage: "hidden layer size", Value: 128, Destination: &hidden},
		&cli.Int64Flag{Name: "classes", Usage: "number of output classes", Value: 10, Destination: &classes},
		&cli.Int64Flag{Name: "val-split", Usage: "samples held out for validation", Value: 10000, Destination: &valSplit},
		&cli.Int64Flag{Name: "seed", Usage: "random seed", Value: 1, Destination: &seed},
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train the float reference model and write a checkpoint",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			applyTrainConfig(cmd, cfg, &epochs, &batchSize, &lr, &momentum, &hidden, &seed)
			log := newLogger()

			images, labels := mnist.TrainPaths(dataDir)
			ds, err := mnist.Load(images, labels)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			if valSplit >= int64(ds.Len()) {
				return fmt.Errorf("val-split %d leaves no training data (%d samples)", valSplit, ds.Len())
			}
			trainIdx, valIdx := ds.Split(int(valSplit), seed)
			log.Info("dataset loaded",
				"samples", ds.Len(), "train", len(trainIdx), "validation", len(valIdx))

			m := model.New(ds.Dim(), int(hidden), int(classes), seed)
			tr := train.New(train.Config{
				Epochs:       int(epochs),
				BatchSize:    int(batchSize),
				LearningRate: float32(lr),
				Momentum:     float32(momentum),
				Seed:         seed,
			}, log)

			acc, err := tr.Fit(m, ds, trainIdx, valIdx)
			if err != nil {
				return err
			}
			log.Info("training complete", "val_accuracy", acc)

			if err := ckpt.Write(checkpointPath, m.Params()); err != nil {
				return fmt.Errorf("write checkpoint: %w", err)
			}
			log.Info("checkpoint written", "path", checkpointPath)
			return nil
		},
	}
}
