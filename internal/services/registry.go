package services

import (
	"sync"

	syncUC "github.com/brainbow/syncd/usecase/sync"
)

// EngineFactory builds a sync engine for a user id.
type EngineFactory func(userID string) *syncUC.Engine

// Registry keeps one sync engine per signed-in user, created on demand and
// torn down on sign-out. It replaces any notion of a process-wide task list
// or current user.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*syncUC.Engine
	factory EngineFactory
}

func NewRegistry(factory EngineFactory) *Registry {
	return &Registry{
		engines: make(map[string]*syncUC.Engine),
		factory: factory,
	}
}

// Get returns the user's engine, creating it on first use.
func (r *Registry) Get(userID string) *syncUC.Engine {
	r.mu.RLock()
	engine, ok := r.engines[userID]
	r.mu.RUnlock()
	if ok {
		return engine
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if engine, ok = r.engines[userID]; ok {
		return engine
	}
	engine = r.factory(userID)
	r.engines[userID] = engine
	return engine
}

// Remove discards the user's engine; the durable cache stays intact for the
// next sign-in.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, userID)
}

// All snapshots the currently active engines.
func (r *Registry) All() []*syncUC.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*syncUC.Engine, 0, len(r.engines))
	for _, engine := range r.engines {
		out = append(out, engine)
	}
	return out
}
