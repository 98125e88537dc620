// Package watch reloads frame data when files under the data directory change.
//
// Events are grouped per character folder and debounced, so a burst of writes
// to one character produces a single content-hash check.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hazyhaar/framedex/pkg/framedata"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// nicknamesKey is the debounce key of the nickname file. It cannot collide
// with a character id because ids never contain a slash.
const nicknamesKey = "/" + framedata.NicknamesFile

// Reloader is the part of framedata.Registry the watcher drives.
type Reloader interface {
	Reload() error
	ReloadIfChanged(id string) (bool, error)
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher monitors a data directory and its character folders.
type Watcher struct {
	root      string
	target    Reloader
	logger    *slog.Logger
	debouncer *Debouncer
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, target Reloader, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	w := &Watcher{
		root:   root,
		target: target,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	w.debouncer = NewDebouncer(opts.Debounce, w.fire)
	return w
}

// Start watches the data directory and every character folder in it.
func (w *Watcher) Start() error {
	root, err := filepath.Abs(w.root)
	if err != nil {
		return err
	}
	w.root = root

	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.fsWatcher.Add(root); err != nil {
		w.fsWatcher.Close()
		return fmt.Errorf("watch %s: %w", root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		w.fsWatcher.Close()
		return fmt.Errorf("read %s: %w", root, err)
	}
	dirs := 0
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := w.fsWatcher.Add(filepath.Join(root, e.Name())); err != nil {
			w.fsWatcher.Close()
			return fmt.Errorf("watch %s: %w", e.Name(), err)
		}
		dirs++
	}

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("watching data directory", "root", root, "characters", dirs)
	return nil
}

// Stop ends the event loop and drops pending reloads.
func (w *Watcher) Stop() {
	close(w.done)
	w.wg.Wait()
	w.debouncer.CancelAll()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || Ignored(event.Name) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	switch len(parts) {
	case 1:
		if parts[0] == framedata.NicknamesFile {
			w.debouncer.Add(nicknamesKey)
			return
		}
		// A new character folder: watch it and check whatever it already holds.
		if event.Has(fsnotify.Create) {
			if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
				if err := w.fsWatcher.Add(event.Name); err != nil {
					w.logger.Warn("watch character folder", "path", event.Name, "error", err)
					return
				}
				w.debouncer.Add(parts[0])
			}
		}
	case 2:
		if isJSON(parts[1]) {
			w.debouncer.Add(parts[0])
		}
	}
}

func (w *Watcher) fire(key string) {
	if key == nicknamesKey {
		if err := w.target.Reload(); err != nil {
			w.logger.Warn("reload after nickname change failed", "error", err)
			return
		}
		w.logger.Info("nicknames reloaded")
		return
	}

	reloaded, err := w.target.ReloadIfChanged(key)
	switch {
	case errors.Is(err, framedata.ErrCharacterNotFound):
		w.logger.Debug("change outside roster ignored", "character", key)
	case err != nil:
		w.logger.Warn("character reload failed", "character", key, "error", err)
	case reloaded:
		w.logger.Info("character reloaded", "character", key)
	}
}
