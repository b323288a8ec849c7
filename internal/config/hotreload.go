package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Watcher hot-reloads only the RoutingDefaults section of a config
// file, adapted from pkg/hotreload/config_reloader.go's fsnotify-driven
// ConfigReloader — trimmed to a single watched section, since pool
// sizing and destination definitions require a process restart here
// (spec.md Non-goals excludes pool-tuning policy as a live feature).
type Watcher struct {
	path string
	log  *logrus.Logger

	watcher *fsnotify.Watcher
	onChange func(RoutingDefaults)

	mu      sync.Mutex
	current RoutingDefaults
}

// NewWatcher creates a Watcher over path, starting from initial as the
// routing defaults in effect until the first successful reload.
func NewWatcher(path string, initial RoutingDefaults, onChange func(RoutingDefaults), log *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher: watch %s: %w", path, err)
	}
	return &Watcher{path: path, log: log, watcher: fw, onChange: onChange, current: initial}, nil
}

// Run processes fsnotify events until the watcher is closed. Run
// should be called in its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watcher: fsnotify error")
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.WithError(err).Warn("config watcher: reload read failed")
		return
	}

	var full struct {
		Routing RoutingDefaults `yaml:"routing"`
	}
	if err := yaml.Unmarshal(data, &full); err != nil {
		w.log.WithError(err).Warn("config watcher: reload parse failed, keeping previous routing defaults")
		return
	}

	w.mu.Lock()
	w.current = full.Routing
	w.mu.Unlock()

	w.log.WithField("default_destination", full.Routing.DefaultOutputDestination).Info("routing defaults reloaded")
	if w.onChange != nil {
		w.onChange(full.Routing)
	}
}

// Current returns the routing defaults currently in effect.
func (w *Watcher) Current() RoutingDefaults {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
