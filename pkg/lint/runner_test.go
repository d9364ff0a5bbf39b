package lint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mesonlint/mesonlint/pkg/analyzer"
	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/stores"
	"github.com/mesonlint/mesonlint/pkg/subprojects"
	"github.com/mesonlint/mesonlint/pkg/telemetry"
	"github.com/mesonlint/mesonlint/pkg/workspace"
)

func newAnalyzer(t *testing.T) *analyzer.Analyzer {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("failed to load builtin registry: %v", err)
	}
	return analyzer.New(reg, zerolog.Nop())
}

// testWorkspace has one error in the root tree, one in the zlib subproject
// and a subproject without build files.
func testWorkspace() *workspace.Workspace {
	b := ast.NewBuilder()
	root := b.File("meson.build",
		b.Call("project", b.Str("demo")),
		b.Assign("z", b.Call("subproject", b.Str("zlib"))),
		b.Call("message", b.Id("missing")),
		b.Call("subdir", b.Str("src")),
	)
	src := b.File("src/meson.build",
		b.Call("message", b.Str("hello")),
	)
	zlib := b.File("meson.build",
		b.Call("project", b.Str("zlib")),
		b.Assign("zlib_dep", b.Call("declare_dependency")),
		b.Call("message", b.Id("nope")),
	)
	return &workspace.Workspace{
		Name: "demo",
		Tree: ast.NewTree(root, src),
		Subprojects: []subprojects.Spec{
			{Name: "zlib", Tree: ast.NewTree(zlib), Provides: []string{"zlib_dep"}},
			{Name: "ghost"},
		},
	}
}

func errorsIn(report *Report) []string {
	var out []string
	for _, d := range report.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			out = append(out, d.File+": "+d.Message)
		}
	}
	return out
}

// counterValue returns the counter of family name whose single label has value label.
func counterValue(t *testing.T, m *telemetry.Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRun(t *testing.T) {
	runner := NewRunner(newAnalyzer(t), Options{})
	report, err := runner.Run(context.Background(), testWorkspace())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if report.Workspace != "demo" {
		t.Errorf("expected workspace demo, got %s", report.Workspace)
	}
	want := []string{
		"meson.build: unknown identifier `missing`",
		"subprojects/zlib/meson.build: unknown identifier `nope`",
	}
	if got := errorsIn(report); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected errors %q, got %q", want, got)
	}
	if report.Errors != 2 || !report.Failed() || report.Status() != stores.RunStatusFailed {
		t.Errorf("expected a failed run with 2 errors, got %d", report.Errors)
	}
	if report.Errors+report.Warnings != len(report.Diagnostics) {
		t.Errorf("expected counts to cover every diagnostic, got %d+%d of %d",
			report.Errors, report.Warnings, len(report.Diagnostics))
	}
	if report.Files != 3 {
		t.Errorf("expected 3 files, got %d", report.Files)
	}
	if len(report.SubprojectErrors) != 1 || !subprojects.IsMissing(report.SubprojectErrors[0]) {
		t.Errorf("expected one missing subproject error, got %v", report.SubprojectErrors)
	}
}

func TestRun_Sorted(t *testing.T) {
	report, err := NewRunner(newAnalyzer(t), Options{}).Run(context.Background(), testWorkspace())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	sorted := append([]diagnostics.Diagnostic{}, report.Diagnostics...)
	diagnostics.Sort(sorted)
	for i := range sorted {
		if sorted[i] != report.Diagnostics[i] {
			t.Fatalf("expected diagnostics in sorted order, differs at %d", i)
		}
	}
}

func TestRun_Passed(t *testing.T) {
	b := ast.NewBuilder()
	ws := &workspace.Workspace{
		Path: "workspace.yaml",
		Tree: ast.NewTree(b.File("meson.build", b.Call("project", b.Str("demo")))),
	}
	report, err := NewRunner(newAnalyzer(t), Options{}).Run(context.Background(), ws)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed() || report.Status() != stores.RunStatusPassed {
		t.Errorf("expected a passing run, got %v", errorsIn(report))
	}
	if report.Workspace != "workspace.yaml" {
		t.Errorf("expected the manifest path as workspace, got %s", report.Workspace)
	}
}

func TestRun_NoTree(t *testing.T) {
	runner := NewRunner(newAnalyzer(t), Options{})
	if _, err := runner.Run(context.Background(), &workspace.Workspace{}); err == nil {
		t.Error("expected an error for a workspace without a tree")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(newAnalyzer(t), Options{}).Run(ctx, testWorkspace())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil || report.RunID == "" {
		t.Error("expected a partial report with a run id")
	}
}

func TestRun_MetricsAndHistory(t *testing.T) {
	metricsCfg := telemetry.DefaultConfig().Metrics
	metricsCfg.Enabled = true
	metrics, err := telemetry.NewMetrics(metricsCfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	runner := NewRunner(newAnalyzer(t), Options{Metrics: metrics, Store: store, HistoryLimit: 2})
	var last *Report
	for i := 0; i < 3; i++ {
		last, err = runner.Run(ctx, testWorkspace())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}

	if got := counterValue(t, metrics, "mesonlint_runs_total", "failed"); got != 3 {
		t.Errorf("expected 3 failed runs, got %v", got)
	}
	if got := counterValue(t, metrics, "mesonlint_subproject_failures_total", "missing"); got != 3 {
		t.Errorf("expected 3 missing subproject failures, got %v", got)
	}
	if got := counterValue(t, metrics, "mesonlint_diagnostics_total", "error"); got != 6 {
		t.Errorf("expected 6 errors, got %v", got)
	}

	runs, err := store.ListRuns(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected history pruned to 2 runs, got %d", len(runs))
	}

	run, err := store.GetRun(ctx, last.RunID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if run.Status != stores.RunStatusFailed || run.Errors != 2 || run.Files != 3 {
		t.Errorf("expected failed run with 2 errors in 3 files, got %+v", run)
	}
	if run.Error == nil || !strings.Contains(*run.Error, "ghost") {
		t.Errorf("expected the subproject failure in the run error, got %v", run.Error)
	}

	diags, err := store.ListDiagnostics(ctx, last.RunID)
	if err != nil {
		t.Fatalf("failed to list diagnostics: %v", err)
	}
	if len(diags) != len(last.Diagnostics) {
		t.Errorf("expected %d stored diagnostics, got %d", len(last.Diagnostics), len(diags))
	}
}
