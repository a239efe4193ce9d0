// Package session houses the Registry mapping session ids to blackboards.
//
// A Registry is an explicit, constructor injected value rather than a hidden
// global so tests and independent workflows can hold isolated registries.
// Blackboards are created lazily on first resolution and live until evicted.
package session
