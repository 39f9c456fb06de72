// Command blobgen writes synthetic datasets of Gaussian blobs in the kkmeans
// input format. Output is fully determined by the flags, so the same seed
// always yields the same file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
)

type Options struct {
	Blobs      int
	PerBlob    int
	Dimensions int
	Spread     float64
	Stddev     float64
	Seed       uint64
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "blobgen: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		opts   Options
		output string
	)
	cmd := &cobra.Command{
		Use:           "blobgen",
		Short:         "Generate Gaussian blob datasets for kkmeans",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			w := stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return generate(w, opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "%v", err)
	})

	f := cmd.Flags()
	f.IntVarP(&opts.Blobs, "blobs", "b", 3, "number of blobs")
	f.IntVarP(&opts.PerBlob, "per-blob", "p", 100, "items per blob")
	f.IntVarP(&opts.Dimensions, "dims", "d", 2, "vector dimensions")
	f.Float64Var(&opts.Spread, "spread", 10, "blob centers are drawn uniformly from [-spread, spread]")
	f.Float64Var(&opts.Stddev, "stddev", 0.5, "standard deviation of each blob")
	f.Uint64Var(&opts.Seed, "seed", 1, "random seed")
	f.StringVarP(&output, "output", "o", "", "output path (default stdout)")
	return cmd
}

func (o Options) validate() error {
	switch {
	case o.Blobs <= 0:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "blobs must be positive, got %d", o.Blobs)
	case o.PerBlob <= 0:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "per-blob must be positive, got %d", o.PerBlob)
	case o.Dimensions <= 0:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "dims must be positive, got %d", o.Dimensions)
	case o.Spread < 0 || o.Stddev < 0:
		return apperrors.New(apperrors.ErrInvalidConfig, "spread and stddev must not be negative")
	}
	return nil
}

// generate writes Blobs*PerBlob items keyed "b<blob>-<n>". Items of one blob
// are contiguous.
func generate(w io.Writer, o Options) error {
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
	bw := bufio.NewWriter(w)

	center := make([]float64, o.Dimensions)
	line := make([]byte, 0, 32*o.Dimensions)
	for b := 0; b < o.Blobs; b++ {
		for d := range center {
			center[d] = (rng.Float64()*2 - 1) * o.Spread
		}
		for n := 0; n < o.PerBlob; n++ {
			line = line[:0]
			line = fmt.Appendf(line, "b%d-%d", b, n)
			for d := range center {
				line = append(line, ' ')
				line = strconv.AppendFloat(line, center[d]+rng.NormFloat64()*o.Stddev, 'g', 8, 64)
			}
			line = append(line, '\n')
			if _, err := bw.Write(line); err != nil {
				return fmt.Errorf("writing item b%d-%d: %w", b, n, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
