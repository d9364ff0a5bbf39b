package commands

import (
	"context"
	"fmt"

	"github.com/mesonlint/mesonlint/pkg/analyzer"
	"github.com/mesonlint/mesonlint/pkg/config"
	"github.com/mesonlint/mesonlint/pkg/lint"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/stores"
	"github.com/mesonlint/mesonlint/pkg/telemetry"
)

// app holds what every command builds from the global flags.
type app struct {
	cfg   *config.Config
	tel   *telemetry.Telemetry
	reg   *registry.Registry
	store *stores.SQLiteStore
}

type appOptions struct {
	// openStore opens the history database when the config names one.
	openStore bool
	// metrics enables the metrics collectors regardless of the config.
	metrics bool
}

// newApp loads the config, telemetry and registry.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Telemetry.ServiceVersion = buildVersion
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if opts.metrics {
		cfg.Telemetry.Metrics.Enabled = true
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	a := &app{cfg: cfg, tel: tel}

	if cfg.Registry != "" {
		a.reg, err = registry.LoadFile(cfg.Registry)
	} else {
		a.reg, err = registry.Default()
	}
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to load builtins: %w", err)
	}

	if opts.openStore && cfg.Store.Path != "" {
		store, err := openHistory(ctx, cfg.Store.Path)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.store = store
	}
	return a, nil
}

func openHistory(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (a *app) logger() *telemetry.Logger {
	return a.tel.Logger
}

func (a *app) runner() *lint.Runner {
	opts := lint.Options{
		Analysis:     a.cfg.Analysis,
		Concurrency:  a.cfg.Subprojects.Concurrency,
		Logger:       a.tel.Logger,
		Metrics:      a.tel.Metrics,
		Tracer:       a.tel.Tracer,
		HistoryLimit: a.cfg.Store.HistoryLimit,
	}
	if a.store != nil {
		opts.Store = a.store
	}
	return lint.NewRunner(analyzer.New(a.reg, a.tel.Logger.Zerolog()), opts)
}

// Close flushes telemetry and closes the store.
func (a *app) Close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger().WithError(err).Warn("Failed to close history store")
		}
	}
	if err := a.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger().WithError(err).Warn("Failed to flush traces")
	}
}
