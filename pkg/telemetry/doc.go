// Package telemetry provides logging, tracing and metrics for mesonlint.
//
// Logging uses zerolog. The analyzer and the subproject resolver take a
// plain zerolog.Logger, obtained with Logger.Zerolog, and tag it with a
// component field. Run-scoped loggers carry the run ID and workspace path:
//
//	logger := tel.Logger.NewComponentLogger("lint").WithRunID(runID)
//	logger.Info("Lint run started")
//
// Tracing uses OpenTelemetry. Each lint run gets a "lint.run" span, and
// each subproject analysis a child "subproject.analyze" span. Exporters are
// otlp (gRPC), stdout or none.
//
// Metrics are Prometheus collectors on a private registry:
//
//	mesonlint_runs_total{status}
//	mesonlint_run_duration_seconds{status}
//	mesonlint_diagnostics_total{severity}
//	mesonlint_subproject_failures_total{class}
//	mesonlint_files_analyzed
//
// Watch mode serves them with Metrics.Server.
package telemetry
