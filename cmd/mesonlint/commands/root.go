package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	buildVersion = "dev"
)

// ErrLintFailed is returned by check when the workspace has errors.
var ErrLintFailed = errors.New("lint errors found")

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mesonlint",
		Short: "mesonlint - static analysis for Meson build files",
		Long: `mesonlint infers the types of every expression in a Meson build tree,
validates calls against the builtin function and method signatures and
reports errors and warnings.

Features:
  - Union type inference across if/elif/else and foreach
  - Call arity, keyword and argument type checks
  - Dead code, unused assignment and no-effect statement lints
  - Deprecation checks against the project's meson_version
  - Concurrent subproject analysis
  - Run history in SQLite and Prometheus metrics`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newBuiltinsCommand())

	return rootCmd
}
