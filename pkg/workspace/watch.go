package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period Watch waits for before reloading.
const DefaultDebounce = 300 * time.Millisecond

// LoadFunc receives every (re)load of a watched workspace. ws is nil when
// err is set.
type LoadFunc func(ws *Workspace, err error)

type watchState struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	manifest string
	files    map[string]bool
	dirs     map[string]bool
}

// Watch loads the workspace at path, passes it to onLoad and does so again
// after every change to the manifest or one of the dumps it lists. Bursts of
// events closer than delay cause a single reload. Watch blocks until ctx is
// done.
func Watch(ctx context.Context, path string, delay time.Duration, logger zerolog.Logger, onLoad LoadFunc) error {
	manifest, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if delay <= 0 {
		delay = DefaultDebounce
	}
	w := &watchState{
		watcher:  watcher,
		logger:   logger.With().Str("component", "watch").Logger(),
		manifest: manifest,
		files:    map[string]bool{manifest: true},
		dirs:     make(map[string]bool),
	}
	w.reload(onLoad)

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Workspace file changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(delay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload(onLoad)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// reload loads the manifest and starts watching the directories of every
// file it references. A failed load keeps the previous watch set.
func (w *watchState) reload(onLoad LoadFunc) {
	ws, err := Load(w.manifest)
	if err == nil {
		for _, src := range ws.Sources {
			if abs, absErr := filepath.Abs(src); absErr == nil {
				w.files[filepath.Clean(abs)] = true
			}
		}
	}
	for f := range w.files {
		w.watchDir(filepath.Dir(f))
	}
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to load workspace")
		onLoad(nil, err)
		return
	}
	w.logger.Info().Int("files", len(w.files)).Msg("Workspace loaded")
	onLoad(ws, nil)
}

// watchDir watches directories rather than files so that editors which
// replace files on save keep being observed.
func (w *watchState) watchDir(dir string) {
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn().Err(err).Str("path", dir).Msg("Failed to watch directory")
		return
	}
	w.dirs[dir] = true
}
