package route

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounce is how long after the last write event a reload waits, so
// editors that write in multiple chunks trigger one reload.
const debounce = 500 * time.Millisecond

// Watcher hot-reloads the route table when the config file changes.
// Load failures keep the previous table and are reported to the sink.
type Watcher struct {
	resolver *Resolver
	path     string
	log      zerolog.Logger
}

// NewWatcher builds a watcher for the route config at path.
func NewWatcher(resolver *Resolver, path string, log zerolog.Logger) *Watcher {
	return &Watcher{resolver: resolver, path: path, log: log}
}

// Run watches for write events and swaps the route table on change.
// Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create route watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch %q: %w", w.path, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("route watcher error")
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		if w.resolver.sink != nil {
			w.resolver.sink.AddError("route config reload failed", map[string]any{
				"path": w.path, "error": err.Error(),
			})
		}
		return
	}
	w.resolver.Reload(cfg)
	w.log.Info().Str("path", w.path).Int("routes", w.resolver.Len()).Msg("route config reloaded")
}
