// Package stores persists lint run history in SQLite.
//
// Every check run is recorded as a row in runs together with the
// diagnostics it produced, so the history command can show how a workspace
// evolved. The schema is managed with golang-migrate from SQL files
// embedded in the binary.
//
// Basic usage:
//
//	store, err := stores.NewSQLiteStore(stores.Config{Path: "history.db"})
//	if err != nil {
//		return err
//	}
//	if err := store.Init(ctx); err != nil {
//		return err
//	}
//	defer store.Close()
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
//
//	run := &stores.Run{ID: id, Workspace: "workspace.yaml", Status: stores.RunStatusRunning, StartedAt: time.Now()}
//	err = store.CreateRun(ctx, run)
package stores
