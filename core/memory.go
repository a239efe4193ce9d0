package core

import "context"

// MemoryAccessor is implemented by agents that keep a session-scoped chat
// memory. The blackboard uses it to lift the last exchange of a sub-agent
// into its own conversation context.
//
// ChatMemory returns (nil, nil) when the agent keeps no memory for the
// given session.
type MemoryAccessor interface {
	ChatMemory(ctx context.Context, sessionID string) ([]Message, error)
	EvictChatMemory(ctx context.Context, sessionID string) (bool, error)
}
