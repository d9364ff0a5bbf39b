package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a store; Init opens the database.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.Path == MemoryPath {
		// Every connection to :memory: is a distinct database.
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	} else {
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 4
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 2
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 5 * time.Minute
		}
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database connection.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if s.cfg.Path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate applies the embedded schema migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck pings the database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// CreateRun inserts a run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, workspace, status, started_at, completed_at, files, errors, warnings, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Workspace,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.Files,
		run.Errors,
		run.Warnings,
		run.DurationMs,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// CompleteRun stores the outcome of a run and stamps its completion time.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, res RunResult) error {
	if !res.Status.Done() {
		return fmt.Errorf("cannot complete run %s with status %s", id, res.Status)
	}

	query := `
		UPDATE runs
		SET status = ?, completed_at = ?, files = ?, errors = ?, warnings = ?, duration_ms = ?, error = ?
		WHERE id = ?
	`

	var errMsg *string
	if res.Error != nil {
		msg := res.Error.Error()
		errMsg = &msg
	}

	result, err := s.db.ExecContext(ctx, query,
		res.Status,
		time.Now().UTC(),
		res.Files,
		res.Errors,
		res.Warnings,
		res.Duration.Milliseconds(),
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	return expectOneRow(result, id)
}

const runColumns = `id, workspace, status, started_at, completed_at, files, errors, warnings, duration_ms, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	err := row.Scan(
		&run.ID,
		&run.Workspace,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Files,
		&run.Errors,
		&run.Warnings,
		&run.DurationMs,
		&run.Error,
	)
	return run, err
}

// GetRun retrieves a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns lists runs newest first. An empty workspace lists every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, workspace string, limit, offset int) ([]*Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE (? = '' OR workspace = ?)
		ORDER BY started_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, workspace, workspace, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run and its diagnostics.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return expectOneRow(result, id)
}

// PruneRuns keeps the newest keep runs and deletes the rest.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative: %d", keep)
	}

	query := `
		DELETE FROM runs
		WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?)
	`

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	return result.RowsAffected()
}

// SaveDiagnostics appends diags to a run in one transaction, keeping their order.
func (s *SQLiteStore) SaveDiagnostics(ctx context.Context, runID string, diags []diagnostics.Diagnostic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM diagnostics WHERE run_id = ?`, runID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read diagnostic sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, file, start_line, start_column, end_line, end_column, severity, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare diagnostic insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range diags {
		_, err := stmt.ExecContext(ctx,
			runID,
			next+i,
			d.File,
			d.Range.Start.Line,
			d.Range.Start.Column,
			d.Range.End.Line,
			d.Range.End.Column,
			d.Severity,
			d.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit diagnostics: %w", err)
	}

	return nil
}

// ListDiagnostics returns the diagnostics of a run in the order they were saved.
func (s *SQLiteStore) ListDiagnostics(ctx context.Context, runID string) ([]diagnostics.Diagnostic, error) {
	query := `
		SELECT file, start_line, start_column, end_line, end_column, severity, message
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []diagnostics.Diagnostic{}
	for rows.Next() {
		var (
			d          diagnostics.Diagnostic
			start, end ast.Position
		)
		if err := rows.Scan(&d.File, &start.Line, &start.Column, &end.Line, &end.Column, &d.Severity, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Range = ast.Range{Start: start, End: end}
		diags = append(diags, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostics: %w", err)
	}

	return diags, nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}
