// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger.
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	seq := agent.NewSequential(writers, func(o *agent.Options) { o.Logger = logger })
//
// Components accept the minimal Logger interface and default to NoOpLogger.
// Structured additionally offers contextual cloning (WithComponent,
// WithSession) and LogAgentCall, LogModelCall and LogWorkflow for uniform
// outcome records.
package logging
