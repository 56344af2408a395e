package sql

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Registry maps names to validated, immutable connection specs. Validation
// happens once, at registration; lookups never re-validate.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Register validates and stores a spec under the given name, replacing any
// previous spec with that name.
func (r *Registry) Register(name string, spec *Spec) error {
	if name == "" {
		return fmt.Errorf("sql: connection spec needs a name")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.specs[name] = spec
	r.mu.Unlock()
	return nil
}

// Get returns the spec registered under name.
func (r *Registry) Get(name string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("sql: connection spec %q not registered", name)
	}
	return spec, nil
}

// Names returns the registered spec names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads a YAML mapping of name to spec and registers every entry.
// The file is rejected as a whole if any spec fails validation.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var specs map[string]*Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("sql: parse %s: %w", path, err)
	}
	for name, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("sql: spec %q in %s: %w", name, path, err)
		}
	}
	r.mu.Lock()
	for name, spec := range specs {
		r.specs[name] = spec
	}
	r.mu.Unlock()
	return nil
}

// Watch reloads the YAML file whenever it changes. Reload failures are
// logged and leave the previous specs in place. The returned stop function
// closes the watcher.
func (r *Registry) Watch(path string) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path || !ev.Op.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := r.LoadFile(path); err != nil {
					slog.Warn("connection registry reload failed", "path", path, "err", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("connection registry watch error", "path", path, "err", err)
			}
		}
	}()
	return func() error {
		err := watcher.Close()
		<-done
		return err
	}, nil
}
