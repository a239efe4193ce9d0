package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/cognisphere/core"
)

// InMemoryStore is a process local ChatMemoryStore protected by an RWMutex.
// Suitable for tests, demos and ephemeral planner sessions.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
	max      int
}

var _ core.ChatMemoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{sessions: make(map[string][]core.Message), max: opts.MaxMessages}
}

// Messages returns a copy of the session history.
func (m *InMemoryStore) Messages(_ context.Context, sessionID string) ([]core.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.sessions[sessionID]
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Add appends messages and applies the window.
func (m *InMemoryStore) Add(_ context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = applyWindow(append(m.sessions[sessionID], msgs...), m.max)
	return nil
}

// Evict drops the session history.
func (m *InMemoryStore) Evict(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok, nil
}

// Sessions returns the number of sessions with a stored history.
func (m *InMemoryStore) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
