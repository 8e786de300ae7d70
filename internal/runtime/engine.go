package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// EngineFactory opens the index engine.
type EngineFactory func(ctx context.Context) (driven.IndexEngine, error)

// EngineRegistry owns the process-wide index engine handle.
// The engine is opened once, on Init or first use, and closed by Shutdown.
// Thread-safe for concurrent access.
type EngineRegistry struct {
	mu      sync.RWMutex
	backend string
	factory EngineFactory
	engine  driven.IndexEngine
	closed  bool
}

// NewEngineRegistry creates a registry for the named backend.
func NewEngineRegistry(backend string, factory EngineFactory) *EngineRegistry {
	return &EngineRegistry{
		backend: backend,
		factory: factory,
	}
}

// Backend returns the configured backend name
func (r *EngineRegistry) Backend() string {
	return r.backend
}

// Init opens the engine if it is not open yet. A failed open is not
// cached; the next call tries again.
func (r *EngineRegistry) Init(ctx context.Context) error {
	_, err := r.Engine(ctx)
	return err
}

// Engine returns the shared engine, opening it on first use.
func (r *EngineRegistry) Engine(ctx context.Context) (driven.IndexEngine, error) {
	r.mu.RLock()
	engine, closed := r.engine, r.closed
	r.mu.RUnlock()

	if closed {
		return nil, domain.ErrEngineClosed
	}
	if engine != nil {
		return engine, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have won the race
	if r.closed {
		return nil, domain.ErrEngineClosed
	}
	if r.engine != nil {
		return r.engine, nil
	}

	engine, err := r.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s engine: %w", domain.ErrEngineUnavailable, r.backend, err)
	}
	r.engine = engine
	return engine, nil
}

// Ready reports whether the engine is open.
func (r *EngineRegistry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine != nil && !r.closed
}

// Shutdown closes the engine. Later calls to Engine return ErrEngineClosed.
func (r *EngineRegistry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.engine == nil {
		return nil
	}
	err := r.engine.Close()
	r.engine = nil
	return err
}
