package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit     int
		workspace string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded lint runs",
		Long: `List recent lint runs from the history database, newest first, or show
the diagnostics of a single run.

History is recorded when store.path is set in the config.`,
		Example: `  # List the last runs
  mesonlint history -c mesonlint.yaml

  # Show the diagnostics of one run
  mesonlint history -c mesonlint.yaml 0b6f1d3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{openStore: true})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.store == nil {
				return errors.New("no history database configured (store.path)")
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := a.store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				diags, err := a.store.ListDiagnostics(ctx, run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]any{"run": run, "diagnostics": diags})
				}
				fmt.Fprintf(out, "run %s (%s) %s\n", run.ID, run.Workspace, run.Status)
				for _, d := range diags {
					fmt.Fprintln(out, d.String())
				}
				if run.Error != nil {
					fmt.Fprintf(out, "error: %s\n", *run.Error)
				}
				return nil
			}

			if limit <= 0 {
				limit = a.cfg.Store.HistoryLimit
			}
			runs, err := a.store.ListRuns(ctx, workspace, limit, 0)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tERRORS\tWARNINGS\tFILES\tDURATION\tWORKSPACE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status,
					r.Errors, r.Warnings, r.Files,
					time.Duration(r.DurationMs)*time.Millisecond, r.Workspace)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of runs to list (default store.history_limit)")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "only list runs of this workspace")

	return cmd
}
