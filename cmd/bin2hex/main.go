// bin2hex converts a binary file into the hex word text format consumed by
// the simulator's memory loader: one byte-reversed lowercase hex word per
// line, see pkg/hexword.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fxprep/pkg/hexword"
)

func main() {
	var width int64

	app := &cli.Command{
		Name:      "bin2hex",
		Usage:     "Convert a binary file to a hex word file",
		ArgsUsage: "<input file> <output file>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "width",
				Aliases:     []string{"w"},
				Usage:       "word width in bits",
				Value:       32,
				Destination: &width,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return fmt.Errorf("expected <input file> <output file>, got %d arguments", args.Len())
			}

			in, err := os.Open(args.Get(0))
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			out, err := os.Create(args.Get(1))
			if err != nil {
				return err
			}

			if err := hexword.Convert(in, out, int(width)); err != nil {
				_ = out.Close()
				return err
			}
			return out.Close()
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
