// Package watch triggers a reload when files in the model directory change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce groups the bursts of events a copy or rename produces.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc rebuilds state after a change. An error keeps the previous state.
type ReloadFunc func(ctx context.Context) error

// MetricsInterface is the subset of metrics the watcher reports to.
type MetricsInterface interface {
	ReloadsInc()
	ReloadFailuresInc()
}

// Watcher debounces file events in one or more paths into reload calls.
type Watcher struct {
	paths    []string
	debounce time.Duration
	reload   ReloadFunc
	metrics  MetricsInterface
	filter   func(name string) bool

	mu      sync.Mutex
	reloads int
	fails   int
}

// New creates a watcher over paths. Paths may be directories or files; for files the
// parent directory is watched, so replace-by-rename is seen.
func New(reload ReloadFunc, debounce time.Duration, metrics MetricsInterface, paths ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		paths:    paths,
		debounce: debounce,
		reload:   reload,
		metrics:  metrics,
		filter:   relevant,
	}
}

// relevant skips editor swap files and other noise.
func relevant(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".swp", ".tmp", ".part":
		return false
	}
	return true
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	files := make(map[string]bool)
	added := 0
	for _, p := range w.paths {
		if p == "" {
			continue
		}
		target := p
		if isFile(p) {
			abs, _ := filepath.Abs(p)
			files[abs] = true
			target = filepath.Dir(p)
		}
		if err := fw.Add(target); err != nil {
			log.Warn().Err(err).Str("path", target).Msg("cannot watch path")
			continue
		}
		added++
	}
	if added == 0 {
		return fmt.Errorf("no watchable paths in %v", w.paths)
	}

	log.Info().Strs("paths", w.paths).Dur("debounce", w.debounce).Msg("Watching model files")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.filter(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if len(files) > 0 && !w.watchedDir(ev.Name) {
				abs, _ := filepath.Abs(ev.Name)
				if !files[abs] {
					continue
				}
			}
			log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("model file changed")
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			pending = false
			w.fire(ctx)
		}
	}
}

// watchedDir reports whether name lives in one of the watched directories.
func (w *Watcher) watchedDir(name string) bool {
	dir, _ := filepath.Abs(filepath.Dir(name))
	for _, p := range w.paths {
		if isFile(p) {
			continue
		}
		abs, _ := filepath.Abs(p)
		if abs == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) fire(ctx context.Context) {
	start := time.Now()
	err := w.reload(ctx)

	w.mu.Lock()
	if err != nil {
		w.fails++
	} else {
		w.reloads++
	}
	w.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("Reload failed, keeping current models")
		if w.metrics != nil {
			w.metrics.ReloadFailuresInc()
		}
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("Models reloaded")
	if w.metrics != nil {
		w.metrics.ReloadsInc()
	}
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// Stats returns the number of successful and failed reloads.
func (w *Watcher) Stats() (reloads, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads, w.fails
}
