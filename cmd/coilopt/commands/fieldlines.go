package commands

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coilopt/coilopt/internal/field"
	"github.com/coilopt/coilopt/internal/tracing"
)

type fieldlinesOptions struct {
	init    string
	r0s     []float64
	z0s     []float64
	length  float64
	step    float64
	phis    []float64
	workers int
}

func newFieldlinesCmd(g *globals) *cobra.Command {
	opts := &fieldlinesOptions{}
	cmd := &cobra.Command{
		Use:   "fieldlines",
		Short: "Trace field lines and print Poincaré section points",
		Long: `Trace the coil field from start points at φ = 0 and print where each line
crosses the requested φ planes. Start points are given in cylindrical
coordinates (R, Z).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			snap, err := readInit(opts.init)
			if err != nil {
				return err
			}
			z0s := opts.z0s
			if len(z0s) == 0 {
				z0s = make([]float64, len(opts.r0s))
			}
			phis := make([]float64, len(opts.phis))
			for i, deg := range opts.phis {
				phis[i] = deg * math.Pi / 180
			}

			factory := func() (field.Field, error) {
				s, err := build(cfg, snap)
				if err != nil {
					return nil, err
				}
				return s.Field, nil
			}
			lines, err := tracing.ComputeFieldlines(cmd.Context(), factory, opts.r0s, z0s, tracing.Config{
				Length:  opts.length,
				Step:    opts.step,
				Phis:    phis,
				Workers: opts.workers,
				Logger:  g.logger,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "LINE\tPHI\tS\tR\tZ\n")
			for i, line := range lines {
				for _, h := range line.Hits {
					fmt.Fprintf(w, "%d\t%g\t%.6f\t%.6f\t%.6f\n", i, opts.phis[h.Plane], h.S, tracing.R(h.Point), h.Point[2])
				}
				g.logger.Info("field line", "line", i, "hits", len(line.Hits), "stop", line.Stop, "length", line.Length)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&opts.init, "init", "", "Trace the coils of this snapshot")
	cmd.Flags().Float64SliceVar(&opts.r0s, "r0", []float64{1.0, 1.05, 1.1}, "Start radii")
	cmd.Flags().Float64SliceVar(&opts.z0s, "z0", nil, "Start heights (default: all zero)")
	cmd.Flags().Float64Var(&opts.length, "length", 100, "Arc length to trace per line")
	cmd.Flags().Float64Var(&opts.step, "step", 0.01, "RK4 step in arc length")
	cmd.Flags().Float64SliceVar(&opts.phis, "phi", []float64{0}, "Section planes in degrees")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "Concurrent workers")
	return cmd
}
