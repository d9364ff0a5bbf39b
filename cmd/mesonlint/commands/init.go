package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesonlint/mesonlint/pkg/config"
)

const defaultConfigFile = "mesonlint.yaml"

func newInitCommand() *cobra.Command {
	var (
		history bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file with every setting at its default value.

With --history the run history database is created next to the config file
and store.path points at it.`,
		Example: `  # Write mesonlint.yaml in the current directory
  mesonlint init

  # Write a config with run history enabled
  mesonlint init --history --config .mesonlint/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = defaultConfigFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			log.Info().Str("config", path).Bool("history", history).Msg("Initializing configuration")

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

			cfg := config.Default()
			out := cmd.OutOrStdout()
			if history {
				dbPath := filepath.Join(filepath.Dir(path), "history.db")
				store, err := openHistory(cmd.Context(), dbPath)
				if err != nil {
					return err
				}
				if err := store.Close(); err != nil {
					return err
				}
				// Relative to the directory mesonlint runs from.
				cfg.Store.Path = dbPath
				fmt.Fprintf(out, "✓ Initialized SQLite database: %s\n", dbPath)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			fmt.Fprintf(out, "✓ Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "create the run history database")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
