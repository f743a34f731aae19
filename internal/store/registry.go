package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/pkg/store"
	"github.com/sealix-io/sealix/stores/awssm"
	"github.com/sealix-io/sealix/stores/memory"
	"github.com/sealix-io/sealix/stores/vault"
)

// Registry manages the lifecycle of named secret store backends.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]store.Store
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[string]store.Store),
	}
}

// Load initializes and registers a store backend under the given name.
func (r *Registry) Load(ctx context.Context, name string, cfg *ir.StoreConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[name]; exists {
		return nil
	}
	if cfg == nil {
		return fmt.Errorf("store %q has no configuration", name)
	}

	var (
		s   store.Store
		err error
	)
	switch cfg.Type {
	case "vault":
		s, err = vault.New(cfg.Options)
	case "awssm":
		s, err = awssm.New(ctx, cfg.Options)
	case "memory":
		s = memory.New()
	default:
		return fmt.Errorf("unknown store type: %s", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize store %q: %w", name, err)
	}

	r.stores[name] = s
	return nil
}

// Register adds a pre-built store under a name. Tests use this to install
// instrumented fakes.
func (r *Registry) Register(name string, s store.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = s
}

// Get returns a registered store.
func (r *Registry) Get(name string) (store.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[name]
	if !ok {
		return nil, fmt.Errorf("store not loaded: %s", name)
	}
	return s, nil
}
