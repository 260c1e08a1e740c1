package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or the iterations of one run",
		Long: `Without arguments, list every run in the store. With a run ID, print
its iterations. Only persistent stores (--store sqlite) keep history
between invocations.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if len(args) == 0 {
				runs, err := store.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintf(w, "ID\tNAME\tMETHOD\tSTATUS\tSTARTED\tITERS\tFINAL J\n")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.6e\n",
						r.ID, r.Name, r.Method, r.Status, humanize.Time(r.StartedAt),
						humanize.Comma(int64(r.Iterations)), r.FinalJ)
				}
				return w.Flush()
			}

			recs, ok, err := store.GetIterations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %s not found", args[0])
			}
			fmt.Fprintf(w, "ITER\tJ\t|∇J|\tEVALS\tELAPSED\n")
			for _, r := range recs {
				fmt.Fprintf(w, "%d\t%.6e\t%.3e\t%d\t%s\n", r.Iter, r.J, r.GradNorm, r.Evaluations, r.Elapsed)
			}
			return w.Flush()
		},
	}
}
