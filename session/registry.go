package session

import (
	"sort"
	"sync"

	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry is a process local mapping from session id to blackboard. It is
// safe for concurrent access and guarantees that at most one blackboard is
// ever associated with a given id. Entries never expire; callers evict them.
type Registry struct {
	mu     sync.RWMutex
	boards map[string]*core.Blackboard
	logger logging.Logger
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by components that are not
// given one explicitly.
func Default() *Registry { return defaultRegistry }

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{boards: make(map[string]*core.Blackboard), logger: opts.Logger}
}

// GetOrCreate returns the blackboard bound to id, creating it lazily on first
// access. Concurrent first accesses with the same id observe the same
// instance. An empty id resolves to core.DefaultID.
func (r *Registry) GetOrCreate(id string) *core.Blackboard {
	if id == "" {
		id = core.DefaultID
	}

	r.mu.RLock()
	bb, ok := r.boards[id]
	r.mu.RUnlock()
	if ok {
		return bb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bb, ok := r.boards[id]; ok {
		return bb
	}
	bb = core.NewBlackboard(id)
	r.boards[id] = bb
	r.logger.Debug("Blackboard created", "session_id", id)
	return bb
}

// Get returns the blackboard bound to id without creating one.
func (r *Registry) Get(id string) (*core.Blackboard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bb, ok := r.boards[id]
	return bb, ok
}

// Register associates an externally created blackboard with its id unless one
// is already present. It returns the blackboard that ends up registered.
func (r *Registry) Register(bb *core.Blackboard) *core.Blackboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.boards[bb.ID()]; ok {
		return existing
	}
	r.boards[bb.ID()] = bb
	return bb
}

// Evict removes and returns the blackboard bound to id.
func (r *Registry) Evict(id string) (*core.Blackboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bb, ok := r.boards[id]
	if ok {
		delete(r.boards, id)
		r.logger.Debug("Blackboard evicted", "session_id", id)
	}
	return bb, ok
}

// Clear drops every registered blackboard.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = make(map[string]*core.Blackboard)
}

// Len returns the number of live blackboards.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

// IDs returns the sorted ids of all live blackboards.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.boards))
	for id := range r.boards {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
