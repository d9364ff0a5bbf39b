package stores

import (
	"context"
	"time"

	"github.com/mesonlint/mesonlint/pkg/diagnostics"
)

// RunStatus is the state of a lint run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
	RunStatusAborted RunStatus = "aborted"
)

// Done reports whether s is a terminal status.
func (s RunStatus) Done() bool {
	return s == RunStatusPassed || s == RunStatusFailed || s == RunStatusAborted
}

// Run is one recorded lint run.
type Run struct {
	ID          string     `json:"id"`
	Workspace   string     `json:"workspace"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Files       int        `json:"files"`
	Errors      int        `json:"errors"`
	Warnings    int        `json:"warnings"`
	DurationMs  int64      `json:"duration_ms"`
	Error       *string    `json:"error,omitempty"`
}

// RunResult is what CompleteRun writes back.
type RunResult struct {
	Status   RunStatus
	Files    int
	Errors   int
	Warnings int
	Duration time.Duration
	Error    error
}

// Store is the history persistence interface.
type Store interface {
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error

	CreateRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, id string, res RunResult) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, workspace string, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error
	PruneRuns(ctx context.Context, keep int) (int64, error)

	SaveDiagnostics(ctx context.Context, runID string, diags []diagnostics.Diagnostic) error
	ListDiagnostics(ctx context.Context, runID string) ([]diagnostics.Diagnostic, error)
}

var _ Store = (*SQLiteStore)(nil)
