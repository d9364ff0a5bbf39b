package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mesonlint/mesonlint/pkg/telemetry"
	"github.com/mesonlint/mesonlint/pkg/workspace"
)

func newWatchCommand() *cobra.Command {
	var (
		format   string
		debounce time.Duration
		metrics  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <workspace.yaml>",
		Short: "Re-run the analysis whenever the workspace changes",
		Long: `Watch the workspace manifest and every tree dump it lists, and re-run the
analysis after each change. Bursts of changes are debounced into one run.

With --metrics the Prometheus endpoint configured under telemetry.metrics
(listen address and path) is served while watching.`,
		Example: `  # Watch a workspace
  mesonlint watch workspace.yaml

  # Watch and expose metrics
  mesonlint watch --metrics workspace.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				format = formatJSON
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{openStore: true, metrics: metrics})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			logger := a.logger().NewComponentLogger("watch").WithWorkspace(args[0])
			if metrics {
				srv := a.tel.Metrics.Server()
				go func() {
					if err := telemetry.ListenAndServe(srv); err != nil {
						logger.WithError(err).Error("Metrics server failed")
					}
				}()
				defer srv.Close()
				logger.Infof("Serving metrics on %s", srv.Addr)
			}

			runner := a.runner()
			out := cmd.OutOrStdout()
			return workspace.Watch(ctx, args[0], debounce, logger.Zerolog(), func(ws *workspace.Workspace, err error) {
				if err != nil {
					logger.WithError(err).Error("Workspace could not be loaded")
					return
				}
				report, err := runner.Run(ctx, ws)
				if err != nil {
					logger.WithError(err).Warn("Lint run did not complete")
					return
				}
				if err := writeReport(out, format, ws, report); err != nil {
					logger.WithError(err).Error("Failed to write report")
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or lsp")
	cmd.Flags().DurationVar(&debounce, "debounce", workspace.DefaultDebounce, "quiet period before re-running")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "serve Prometheus metrics while watching")

	return cmd
}
