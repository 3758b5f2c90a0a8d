package vision

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const defaultDebounce = 250 * time.Millisecond

// Loader loads the pipeline definition file into a Manager and reloads it
// when the file changes.
type Loader struct {
	path     string
	manager  *Manager
	debounce time.Duration
	logger   *slog.Logger
	onReload func(error)
}

// LoaderOption configures a Loader.
type LoaderOption func(l *Loader)

// WithDebounce sets how long the loader waits for the file to settle.
func WithDebounce(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.debounce = d
		}
	}
}

func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithReloadHook is called after every reload triggered by a file change,
// with the reload outcome.
func WithReloadHook(fn func(error)) LoaderOption {
	return func(l *Loader) {
		l.onReload = fn
	}
}

func NewLoader(path string, manager *Manager, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:     path,
		manager:  manager,
		debounce: defaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "vision-loader", "path", path)

	return l
}

// Load reads the definition file and swaps the pipeline it describes in.
func (l *Loader) Load() error {
	def, err := ReadDefinition(l.path)
	if err != nil {
		return err
	}

	return l.manager.LoadDefinition(def)
}

// Run watches the directory of the definition file until ctx is done.
// Bursts of events within the debounce window cause a single reload. Reload
// failures are logged and keep the previous pipeline.
func (l *Loader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "unable to create file watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return errors.Wrapf(err, "unable to watch %s", filepath.Dir(l.path))
	}
	target, err := filepath.Abs(l.path)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", l.path)
	}
	l.logger.Info("watching pipeline definition")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != target {
				continue
			}
			l.logger.Debug("definition file event", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				timer.Stop()
				timer.Reset(l.debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("file watcher error", "error", err)
		case <-fire:
			fire = nil
			l.reload()
		}
	}
}

func (l *Loader) reload() {
	start := time.Now()
	err := l.Load()
	if err != nil {
		l.logger.Error("pipeline reload failed", "error", err, "duration", time.Since(start))
	} else {
		l.logger.Info("pipeline reloaded", "duration", time.Since(start))
	}
	if l.onReload != nil {
		l.onReload(err)
	}
}
