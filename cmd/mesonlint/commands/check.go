package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mesonlint/mesonlint/pkg/editor"
	"github.com/mesonlint/mesonlint/pkg/lint"
	"github.com/mesonlint/mesonlint/pkg/workspace"
)

// Output formats of check and watch.
const (
	formatText = "text"
	formatJSON = "json"
	formatLSP  = "lsp"
)

func newCheckCommand() *cobra.Command {
	var (
		format   string
		warnings bool
	)

	cmd := &cobra.Command{
		Use:   "check <workspace.yaml>",
		Short: "Analyze a workspace and report diagnostics",
		Long: `Analyze the build tree described by a workspace manifest.

The manifest lists the tree dumps of the project, its declared options and
its subprojects. Subprojects are analyzed first, concurrently; the root tree
is then analyzed against their exported variables.

The command exits with status 1 when any error is reported.`,
		Example: `  # Check a workspace
  mesonlint check workspace.yaml

  # Emit LSP diagnostics grouped by document
  mesonlint check --format lsp workspace.yaml

  # Fail on warnings too
  mesonlint check --warnings-as-errors workspace.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				format = formatJSON
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{openStore: true})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			ws, err := workspace.Load(args[0])
			if err != nil {
				return err
			}

			log.Debug().Str("workspace", args[0]).Str("format", format).Msg("Checking workspace")
			report, err := a.runner().Run(ctx, ws)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), format, ws, report); err != nil {
				return err
			}
			if report.Failed() || (warnings && report.Warnings > 0) {
				return ErrLintFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or lsp")
	cmd.Flags().BoolVar(&warnings, "warnings-as-errors", false, "exit with status 1 on warnings")

	return cmd
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatLSP:
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeReport(w io.Writer, format string, ws *workspace.Workspace, report *lint.Report) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatLSP:
		dir, err := filepath.Abs(ws.Dir)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(editor.ToProtocol(dir, report.Diagnostics))
	}

	for _, d := range report.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
	for _, err := range report.SubprojectErrors {
		fmt.Fprintf(w, "subproject: %v\n", err)
	}
	fmt.Fprintf(w, "%d errors, %d warnings in %d files (%s)\n",
		report.Errors, report.Warnings, report.Files, report.Duration.Round(time.Microsecond))
	return nil
}
