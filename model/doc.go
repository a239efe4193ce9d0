// Package model defines the provider-agnostic abstractions for interacting
// with language models inside cognisphere.
//
// Model unifies streaming and non-streaming generation behind Generate.
// Collect drains a call into its final text, which is all the orchestration
// layer needs. MockModel supports canned, queued and failing responses for
// tests.
//
// Providers (model/openai, model/anthropic) implement Model so agents remain
// decoupled from vendor SDKs.
package model
