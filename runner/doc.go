// Package runner drives invocations of a single agent, typically the entry
// agent of a compiled workflow.
//
// A Runner bounds the number of concurrent invocations, applies a
// per-invocation timeout and tracks asynchronous runs so they can be
// cancelled by id. A run exceeding its timeout fails with a
// *core.AgentError matching context.DeadlineExceeded.
//
//	r := runner.New(workflow.Entry(), func(o *runner.Options) {
//		o.Timeout = time.Minute
//		o.MaxConcurrentInvocations = 4
//	})
//	out, err := r.Invoke(ctx, map[string]any{"topic": "dragons"})
package runner
