// Package watch triggers cleanup runs for directories that appear under a
// set of watched roots.
//
// New directories are registered when they are created or moved into a
// root. Any filesystem activity below a registered directory restarts its
// quiet period. Once a directory is stable it is handed to a single worker,
// so runs never overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danieljhkim/tidydl/internal/clock"
	"github.com/danieljhkim/tidydl/internal/logging"
)

// DefaultTick is how often settling directories are checked.
const DefaultTick = time.Second

// RunFunc cleans one stabilized directory.
type RunFunc func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	// Settle is the quiet period before a directory is cleaned
	Settle time.Duration

	// MaxWait caps the total wait from first sight
	MaxWait time.Duration

	// Tick is the polling interval for due directories (DefaultTick if zero)
	Tick time.Duration

	// QueueSize bounds directories waiting for the worker
	QueueSize int
}

// Watcher observes roots and runs RunFunc for every stabilized new directory.
type Watcher struct {
	fsw    *fsnotify.Watcher
	roots  map[string]bool
	stab   *Stabilizer
	clock  clock.Clock
	run    RunFunc
	opts   Options
	logger zerolog.Logger
}

// New creates a Watcher over roots. Close must be called if Run is not.
func New(roots []string, clk clock.Clock, opts Options, run RunFunc) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New("no directories to watch")
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		roots:  make(map[string]bool),
		stab:   NewStabilizer(clk, opts.Settle, opts.MaxWait),
		clock:  clk,
		run:    run,
		opts:   opts,
		logger: logging.GetLogger("watch"),
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
		}
		if !info.IsDir() {
			fsw.Close()
			return nil, fmt.Errorf("%s is not a directory", abs)
		}
		if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
		}
		w.roots[abs] = true
		w.logger.Info().Str("path", abs).Msg("Watching directory")
	}

	return w, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	queue := make(chan string, w.opts.QueueSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		return w.loop(gctx, queue)
	})

	g.Go(func() error {
		for path := range queue {
			w.trigger(gctx, path)
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loop owns the stabilizer. The tick channel is re-armed only when it
// fires, so a steady stream of events cannot postpone the due check.
func (w *Watcher) loop(ctx context.Context, queue chan<- string) error {
	tick := w.clock.After(w.opts.Tick)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")

		case <-tick:
			tick = w.clock.After(w.opts.Tick)
			for _, path := range w.stab.Due() {
				select {
				case queue <- path:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.logger.Trace().Str("path", event.Name).Str("op", event.Op.String()).Msg("Event")

	if owner, ok := w.stab.Owner(event.Name); ok {
		if event.Name == owner && event.Has(fsnotify.Remove|fsnotify.Rename) {
			w.logger.Debug().Str("path", owner).Msg("Directory went away before settling")
			w.stab.Forget(owner)
			return
		}
		w.stab.Touch(owner)
		if event.Has(fsnotify.Create) {
			w.watchTree(event.Name)
		}
		return
	}

	if !event.Has(fsnotify.Create) || !w.roots[filepath.Dir(event.Name)] {
		return
	}

	info, err := os.Lstat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}

	w.logger.Info().Str("path", event.Name).Msg("New directory, waiting for it to settle")
	w.stab.Touch(event.Name)
	w.watchTree(event.Name)
}

// watchTree adds path and its subdirectories to the watcher so activity
// anywhere below a registered directory is seen.
func (w *Watcher) watchTree(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}

	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				w.logger.Debug().Err(err).Str("path", p).Msg("Failed to watch directory")
			}
		}
		return nil
	})
	if err != nil {
		w.logger.Debug().Err(err).Str("path", path).Msg("Failed to walk new directory")
	}
}

func (w *Watcher) trigger(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	if _, err := os.Lstat(path); err != nil {
		w.logger.Debug().Str("path", path).Msg("Settled directory no longer exists")
		return
	}

	w.logger.Info().Str("path", path).Msg("Directory settled, cleaning")
	if err := w.run(ctx, path); err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("Cleanup run reported a problem")
	}
}

// Pending returns the number of directories still settling.
func (w *Watcher) Pending() int {
	return w.stab.Pending()
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
