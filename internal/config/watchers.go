package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/callcoach/callcoach-core/pkg/logger"
)

// Watcher reloads the reloadable subset of configuration when the config
// file changes on disk. Only the floor-wide lexicon and search tuning are
// hot-reloadable; everything else requires a restart.
type Watcher struct {
	path     string
	log      logger.Logger
	onReload func(*Config)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher watches path (a config.yaml) and invokes onReload with the
// freshly loaded config after every write event. Reload failures are
// logged and the previous config stays in effect.
func NewWatcher(path string, log logger.Logger, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file atomically,
	// which drops a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		log:      log,
		onReload: onReload,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load()
			if err != nil {
				w.log.Warn("config reload failed; keeping previous config", "error", err)
				continue
			}
			w.log.Info("config reloaded", "path", w.path)
			w.onReload(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.watcher.Close()
}
