package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/types"
)

// Watcher reloads one config file when it changes on disk and notifies
// the registered callback with the freshly-loaded configuration.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*types.Config)

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewWatcher watches path, calling onChange after each successful reload.
// The parent directory is watched rather than the file: editors and the
// store's atomic writes replace the file, which drops a file-level watch.
func NewWatcher(path string, onChange func(*types.Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		path:     path,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	log := logging.Component("config")
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}

			config := &types.Config{Provider: make(map[string]types.ProviderConfig)}
			if err := LoadFile(w.path, config); err != nil {
				log.Warn().Err(err).Str("path", w.path).Msg("config reload failed")
				continue
			}
			applyEnvOverrides(config)
			applyDefaults(config)

			log.Info().Str("path", w.path).Msg("config reloaded")
			w.onChange(config)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Stop stops the watcher and waits for the run loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}
	return w.watcher.Close()
}
