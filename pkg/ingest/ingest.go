// Package ingest turns raw filesystem notifications into accepted
// trigger events. It watches the configured roots recursively, follows
// new directories as they appear, filters transient and temporary
// names, and debounces rename bursts so a trigger is emitted once the
// name has settled.
package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arthur-debert/morphd/pkg/config"
	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/fileops"
	"github.com/arthur-debert/morphd/pkg/logging"
	"github.com/arthur-debert/morphd/pkg/trigger"
)

// Event is one accepted trigger, ready for the conversion pool.
type Event struct {
	// Path is the absolute bang-named path.
	Path string
	// Desc is the parsed trigger descriptor, IsDir resolved.
	Desc trigger.Descriptor
}

// Watcher owns the fsnotify watcher and the debounce state. Events()
// is a bounded channel; when the pool falls behind, the watcher blocks
// rather than dropping triggers.
type Watcher struct {
	cfg    *config.Config
	fsw    *fsnotify.Watcher
	events chan Event
	stopCh chan struct{}
	loopWG sync.WaitGroup
	// fireWG counts armed or running debounce callbacks; Stop waits on
	// it before closing the event channel.
	fireWG  sync.WaitGroup
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher for the configured roots. Start must be
// called before events flow.
func NewWatcher(cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWatchInit, "failed to create filesystem watcher")
	}
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		events:  make(chan Event, cfg.Watch.QueueSize),
		stopCh:  make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Events returns the accepted-trigger channel. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start registers the watch roots recursively and begins dispatching.
func (w *Watcher) Start() error {
	logger := logging.GetLogger("ingest")

	for _, root := range w.cfg.Watch.Roots {
		if err := w.addTree(root); err != nil {
			return err
		}
		logger.Info().Str("root", root).Msg("watching")
	}

	w.loopWG.Add(1)
	go w.loop()
	return nil
}

// Stop halts dispatch, cancels pending debounce timers and closes the
// event channel. Safe to call once.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.fsw.Close()
	w.loopWG.Wait()

	w.mu.Lock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.fireWG.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	// Callbacks already past their timer see the closed stopCh and
	// return without sending.
	w.fireWG.Wait()
	close(w.events)
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.Wrapf(err, errors.ErrWatchAdd, "cannot watch %s", dir)
			}
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHiddenName(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, errors.ErrWatchAdd, "cannot watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.loopWG.Done()
	logger := logging.GetLogger("ingest")

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// handle reacts to one raw notification. A rename into a watched
// directory surfaces as Create; that is the only op that can introduce
// a trigger name.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}

	name := filepath.Base(ev.Name)
	if fileops.IsTempPath(ev.Name) || trigger.IsTransientName(name) {
		return
	}

	// Follow directories created or moved in after startup so triggers
	// inside them are seen too.
	if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() && !isHiddenName(name) {
		if err := w.addTree(ev.Name); err != nil {
			logger := logging.GetLogger("ingest")
			logger.Warn().Err(err).Str("path", ev.Name).Msg("failed to watch new directory")
		}
	}

	if !looksLikeTrigger(name) {
		return
	}
	w.schedule(ev.Name)
}

// schedule arms (or re-arms) the debounce timer for path. The trigger
// is confirmed only after the name has been quiet for the window.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		// Reset only if the callback has not started; a timer caught
		// mid-fire is replaced with a fresh one instead.
		if timer.Stop() {
			timer.Reset(w.cfg.Debounce())
			return
		}
	}
	w.fireWG.Add(1)
	w.pending[path] = time.AfterFunc(w.cfg.Debounce(), func() {
		defer w.fireWG.Done()
		w.fire(path)
	})
}

// fire re-validates a settled name and emits it. The stat happens here,
// not at schedule time: the path may have been renamed again or
// removed during the quiet window.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	desc, ok := trigger.Parse(filepath.Base(path), info.IsDir())
	if !ok {
		return
	}

	select {
	case w.events <- Event{Path: path, Desc: desc}:
		logger := logging.GetLogger("ingest")
		logger.Debug().
			Str("path", path).
			Str("target", desc.TargetExt).
			Msg("trigger accepted")
	case <-w.stopCh:
	}
}

// looksLikeTrigger is the cheap pre-debounce check: does the last dot
// segment start with a bang and name a producible format. IsDir is
// unknown at this point, so both readings are tried.
func looksLikeTrigger(name string) bool {
	if !strings.Contains(name, ".!") {
		return false
	}
	if _, ok := trigger.Parse(name, false); ok {
		return true
	}
	_, ok := trigger.Parse(name, true)
	return ok
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}
