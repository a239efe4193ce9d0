// Package agent contains the orchestration core of cognisphere: agent
// capabilities, the executor that drives one agent against a blackboard, the
// dispatch façade that exposes a composition as an agent itself, and the four
// composition strategies.
//
// The package focuses on three concerns:
//
//  1. Capabilities (Agent, OutputNamer, BlackboardOwner) and the Executor
//  2. Composition strategies (Sequential, Loop, Conditional, Supervisor)
//     served through a Facade
//  3. Leaf agents: FuncAgent for plain Go functions and ModelAgent for
//     prompt-driven language model calls, plus the model-backed Planner and
//     Scorer used by the supervisor
//
// Execution model:
//   - Every agent reads its arguments from a *core.Blackboard through its
//     binding.Specification and may write its result under an output name
//   - A Facade resolves the blackboard of a call (session id, bound or
//     ad-hoc), feeds the call arguments into it and runs its Strategy
//   - Strategies run their sub-agents one at a time; composed façades nested
//     inside another composition are bound to the parent's blackboard
package agent
