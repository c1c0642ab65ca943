// Package guard watches a tree for external modification while a rename run
// is in flight. The rename engine assumes exclusive, uncontended access to
// the target tree; the guard makes a violated assumption visible instead of
// silent by logging every filesystem event the engine did not cause itself.
package guard

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/tree"
)

// Guard is an fsnotify watcher with an allow-list of expected paths.
type Guard struct {
	w      *fsnotify.Watcher
	root   string
	logger *slog.Logger

	mu       sync.Mutex
	expected map[string]struct{}

	done chan struct{}
}

// Start begins watching root and everything below it. Call Expect with each
// path the engine is about to mutate; every other event is reported as a
// warning. Stop must be called to release the watcher.
func Start(root string, logger *slog.Logger) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	g := &Guard{
		w:        w,
		root:     abs,
		logger:   logger,
		expected: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	if err := addDirsRecursive(w, abs); err != nil {
		w.Close()
		return nil, err
	}
	go g.loop()
	logger.Debug("guard: started", slog.String("root", abs))
	return g, nil
}

// Expect marks a path (relative to the watched root) as an engine-initiated
// mutation. Expected paths stay on the allow-list for the rest of the run; a
// single write or rename produces several events.
func (g *Guard) Expect(rel string) {
	g.mu.Lock()
	g.expected[filepath.Join(g.root, rel)] = struct{}{}
	g.mu.Unlock()
}

// Stop closes the watcher and waits for the event loop to drain.
func (g *Guard) Stop() {
	_ = g.w.Close()
	<-g.done
}

func (g *Guard) loop() {
	defer close(g.done)
	for {
		select {
		case ev, ok := <-g.w.Events:
			if !ok {
				return
			}
			g.handle(ev)
		case err, ok := <-g.w.Errors:
			if !ok {
				return
			}
			g.logger.Warn("guard: watcher error", slog.String("error", err.Error()))
		}
	}
}

func (g *Guard) handle(ev fsnotify.Event) {
	// The engine's atomic writes go through transient temp files.
	if strings.HasPrefix(filepath.Base(ev.Name), tree.TempPrefix) {
		return
	}

	// Directories renamed by the path pass get recreated in the watch list
	// under their new name.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = addDirsRecursive(g.w, ev.Name)
		}
	}

	g.mu.Lock()
	_, ok := g.expected[ev.Name]
	g.mu.Unlock()
	if ok {
		return
	}

	g.logger.Warn("guard: external modification detected",
		slog.String("path", ev.Name),
		slog.String("op", ev.Op.String()))
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
