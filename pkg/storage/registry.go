package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/openindexer/indexerd/pkg/errors"
)

// Factory creates an ObjectStore from a storage config
type Factory func(ctx context.Context, cfg *Config) (ObjectStore, error)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register registers a backend factory under name. Backends call this from
// init() in their build-tag-gated package; registering the same name twice
// is a programming error and panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := backends[name]; exists {
		panic("storage: backend " + name + " registered twice")
	}
	backends[name] = factory
}

// Open creates the ObjectStore named by cfg.Backend. It fails with a config
// error when the backend was not compiled into this binary.
func Open(ctx context.Context, cfg *Config) (ObjectStore, error) {
	if cfg.Backend == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "storage backend is required")
	}

	registryMu.RLock()
	factory, exists := backends[cfg.Backend]
	registryMu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"storage backend %q is not compiled into this binary (compiled: %v)", cfg.Backend, Backends())
	}

	store, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open storage backend "+cfg.Backend)
	}
	return store, nil
}

// Backends returns the names of compiled-in backends, sorted
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
