// Package core provides the foundational domain types shared by every
// Cognisphere component:
//
//   - Blackboard (the per-session shared state, call history and context)
//   - Message (a single conversational turn)
//   - AgentCall (an entry in the per-agent invocation history)
//   - MemoryAccessor (the optional chat-memory capability of an agent)
//   - The error taxonomy used across binding, execution and composition
//
// The package intentionally keeps orchestration out of scope. Composition
// strategies live in package agent, the registry of live blackboards in
// package session and argument binding in package binding.
package core
