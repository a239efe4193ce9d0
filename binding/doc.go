// Package binding derives agent specifications: the public name and
// description of an agent operation plus the mapping from blackboard keys to
// call arguments.
//
// Two variants exist. A method specification binds each declared parameter
// to a blackboard key (or to the blackboard id for a session parameter). An
// untyped specification passes the entire state map as its only argument.
// Both render a compact Card used by supervisor planning prompts.
//
// Binding names are resolved per parameter in priority order: an explicit
// Binding, then the session marker, then the parameter's own Ident. An
// operation with exactly one non-session parameter falls back to the key
// "request" when neither name is available.
package binding
