package telemetry_test

import (
	"context"

	"github.com/mesonlint/mesonlint/pkg/telemetry"
)

// Example_setup builds the telemetry bundle from the default configuration.
func Example_setup() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Format = "json"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	telemetry.FromContext(ctx).NewComponentLogger("lint").Info("Lint run started")

	// Output can vary, so no output is specified.
}
