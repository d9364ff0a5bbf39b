// Package lint runs a full analysis of a workspace: subprojects first, then
// the root tree, and turns the outcome into a Report. Runs are recorded in
// metrics, traces and, when a store is configured, the history database.
package lint

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesonlint/mesonlint/pkg/analyzer"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"
	"github.com/mesonlint/mesonlint/pkg/stores"
	"github.com/mesonlint/mesonlint/pkg/subprojects"
	"github.com/mesonlint/mesonlint/pkg/telemetry"
	"github.com/mesonlint/mesonlint/pkg/workspace"
)

// SubprojectDir is the directory subproject diagnostics are reported under.
const SubprojectDir = "subprojects"

// Options configure a Runner. Every field is optional.
type Options struct {
	Analysis analyzer.AnalysisOptions
	// Concurrency bounds parallel subproject analyses; 0 means unbounded.
	Concurrency int
	Logger      *telemetry.Logger
	Metrics     *telemetry.Metrics
	Tracer      *telemetry.Tracer
	// Store receives every run. HistoryLimit > 0 prunes older runs.
	Store        stores.Store
	HistoryLimit int
}

// Runner executes lint runs. It is safe for concurrent use.
type Runner struct {
	analyzer *analyzer.Analyzer
	opts     Options
	logger   *telemetry.Logger
	tracer   trace.Tracer
}

// NewRunner creates a runner around a.
func NewRunner(a *analyzer.Analyzer, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Nop()
	}
	var tracer trace.Tracer
	if opts.Tracer != nil {
		tracer = opts.Tracer.Tracer()
	} else {
		tracer = otel.Tracer("mesonlint/lint")
	}
	return &Runner{
		analyzer: a,
		opts:     opts,
		logger:   logger.NewComponentLogger("lint"),
		tracer:   tracer,
	}
}

// Report is the outcome of one run.
type Report struct {
	RunID     string `json:"run_id"`
	Workspace string `json:"workspace"`
	// Diagnostics of the root tree and every analyzed subproject, sorted
	// by file and position.
	Diagnostics      []diagnostics.Diagnostic `json:"diagnostics"`
	SubprojectErrors []error                  `json:"-"`
	Errors           int                      `json:"errors"`
	Warnings         int                      `json:"warnings"`
	Files            int                      `json:"files"`
	Duration         time.Duration            `json:"duration"`
	TraceID          string                   `json:"trace_id,omitempty"`
}

// Failed reports whether the run produced errors.
func (r *Report) Failed() bool { return r.Errors > 0 }

// Status is the history status of the report.
func (r *Report) Status() stores.RunStatus {
	if r.Failed() {
		return stores.RunStatusFailed
	}
	return stores.RunStatusPassed
}

// Run analyzes ws. The error is non-nil only when ctx ends before the run
// completes; rule violations and subproject failures are part of the report.
func (r *Runner) Run(ctx context.Context, ws *workspace.Workspace) (*Report, error) {
	if ws == nil || ws.Tree == nil {
		return nil, errors.New("workspace has no tree")
	}

	timer := telemetry.NewTimer()
	report := &Report{RunID: uuid.New().String(), Workspace: workspaceName(ws)}
	log := r.logger.WithRunID(report.RunID).WithWorkspace(report.Workspace)

	ctx, span := r.startSpan(ctx, report)
	defer span.End()
	report.TraceID = telemetry.TraceID(ctx)

	r.createRun(ctx, log, report)
	log.Info("Lint run started")

	state, err := subprojects.Resolve(ctx, r.analyzer, ws.Subprojects, subprojects.Options{
		Analysis: r.opts.Analysis,
		Limit:    r.opts.Concurrency,
		Logger:   log.Zerolog(),
		Tracer:   r.tracer,
	})
	if err != nil {
		report.Duration = timer.Duration()
		telemetry.RecordError(span, err)
		r.finish(ctx, log, report, stores.RunStatusAborted, err)
		return report, fmt.Errorf("lint run cancelled: %w", err)
	}

	root := r.analyzer.Analyze(analyzer.Input{
		Tree:        ws.Tree,
		Options:     ws.Options,
		Analysis:    r.opts.Analysis,
		Subprojects: state,
	})

	diags := append([]diagnostics.Diagnostic{}, root.Sink.Diagnostics()...)
	report.Files = len(ws.Tree.Files())
	for _, name := range state.Names() {
		res, _ := state.Result(name)
		for _, d := range res.Sink.Diagnostics() {
			d.File = path.Join(SubprojectDir, name, d.File)
			diags = append(diags, d)
		}
		for _, spec := range ws.Subprojects {
			if spec.Name == name {
				report.Files += len(spec.Tree.Files())
			}
		}
	}
	diagnostics.Sort(diags)
	report.Diagnostics = diags
	report.SubprojectErrors = state.Errors()
	for _, d := range diags {
		if d.Severity == diagnostics.SeverityError {
			report.Errors++
		} else {
			report.Warnings++
		}
	}
	report.Duration = timer.Duration()

	r.record(report)
	span.SetAttributes(
		telemetry.AttrFiles.Int(report.Files),
		telemetry.AttrErrors.Int(report.Errors),
		telemetry.AttrWarnings.Int(report.Warnings),
		telemetry.AttrSubprojects.Int(len(ws.Subprojects)),
	)
	telemetry.RecordSuccess(span)
	r.finish(ctx, log, report, report.Status(), errors.Join(report.SubprojectErrors...))
	return report, nil
}

func workspaceName(ws *workspace.Workspace) string {
	switch {
	case ws.Path != "":
		return ws.Path
	case ws.Name != "":
		return ws.Name
	}
	return ws.Dir
}

func (r *Runner) startSpan(ctx context.Context, report *Report) (context.Context, trace.Span) {
	if r.opts.Tracer != nil {
		return r.opts.Tracer.StartRunSpan(ctx, report.RunID, report.Workspace)
	}
	return r.tracer.Start(ctx, "lint.run", trace.WithAttributes(
		telemetry.AttrRunID.String(report.RunID),
		telemetry.AttrWorkspace.String(report.Workspace),
	))
}

func (r *Runner) record(report *Report) {
	m := r.opts.Metrics
	if m == nil {
		return
	}
	m.RecordRun(string(report.Status()), report.Duration)
	m.RecordDiagnostics(string(diagnostics.SeverityError), report.Errors)
	m.RecordDiagnostics(string(diagnostics.SeverityWarning), report.Warnings)
	m.SetFilesAnalyzed(report.Files)
	for _, err := range report.SubprojectErrors {
		var se *subprojects.SubprojectError
		if errors.As(err, &se) {
			m.RecordSubprojectFailure(string(se.Class))
		}
	}
}

// createRun and finish write history. Store failures are logged and never
// fail the run.
func (r *Runner) createRun(ctx context.Context, log *telemetry.Logger, report *Report) {
	if r.opts.Store == nil {
		return
	}
	run := &stores.Run{
		ID:        report.RunID,
		Workspace: report.Workspace,
		Status:    stores.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.opts.Store.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Warn("Failed to record run")
	}
}

func (r *Runner) finish(ctx context.Context, log *telemetry.Logger, report *Report, status stores.RunStatus, runErr error) {
	if status == stores.RunStatusAborted {
		log.WithError(runErr).Warn("Lint run aborted")
	} else {
		log.Infof("Lint run %s: %d errors, %d warnings in %d files", status, report.Errors, report.Warnings, report.Files)
	}

	if r.opts.Store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := r.opts.Store.SaveDiagnostics(ctx, report.RunID, report.Diagnostics); err != nil {
		log.WithError(err).Warn("Failed to save diagnostics")
	}
	res := stores.RunResult{
		Status:   status,
		Files:    report.Files,
		Errors:   report.Errors,
		Warnings: report.Warnings,
		Duration: report.Duration,
		Error:    runErr,
	}
	if err := r.opts.Store.CompleteRun(ctx, report.RunID, res); err != nil {
		log.WithError(err).Warn("Failed to complete run")
		return
	}
	if r.opts.HistoryLimit > 0 {
		if n, err := r.opts.Store.PruneRuns(ctx, r.opts.HistoryLimit); err != nil {
			log.WithError(err).Warn("Failed to prune history")
		} else if n > 0 {
			log.Debugf("Pruned %d runs", n)
		}
	}
}
