package core

import "context"

// ChatMemoryStore persists windowed, session scoped conversation history for
// model backed agents. Short method names align with the memory package
// implementations.
type ChatMemoryStore interface {
	// Messages returns the history of sessionID, oldest first. An unknown
	// session yields an empty slice.
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	// Add appends messages to the history of sessionID.
	Add(ctx context.Context, sessionID string, msgs ...Message) error
	// Evict drops the history of sessionID and reports whether one existed.
	Evict(ctx context.Context, sessionID string) (bool, error)
}
