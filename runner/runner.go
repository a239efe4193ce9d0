package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxConcurrentInvocations limits concurrent invocations of the agent.
	MaxConcurrentInvocations int
	// Timeout bounds each invocation. Zero disables the deadline.
	Timeout time.Duration
	// Logging services.
	Logger logging.Logger
}

// Result is the outcome of an asynchronous run.
type Result struct {
	RunID  string
	Output any
	Err    error
}

// Runner drives invocations of one agent: it bounds concurrency, applies a
// per-invocation deadline, and tracks active runs for cancellation. Public
// methods are safe for concurrent use.
type Runner struct {
	agent   agent.Agent
	name    string
	timeout time.Duration
	sem     chan struct{}
	logger  logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(a agent.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentInvocations: 10,
		Logger:                   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrentInvocations <= 0 {
		opts.MaxConcurrentInvocations = 1
	}

	name := ""
	if specs := a.Specifications(); len(specs) > 0 {
		name = specs[0].Name()
	}

	return &Runner{
		agent:      a,
		name:       name,
		timeout:    opts.Timeout,
		sem:        make(chan struct{}, opts.MaxConcurrentInvocations),
		logger:     opts.Logger,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous invocation of operation. The result channel
// receives exactly one Result and is then closed.
func (r *Runner) Run(ctx context.Context, operation string, args []any) (string, <-chan Result, error) {
	if !r.declares(operation) {
		return "", nil, fmt.Errorf("%w: %s has no operation %q", core.ErrUnsupportedOperation, r.name, operation)
	}

	runID := uuid.NewString()
	resultCh := make(chan Result, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			close(resultCh)
		}()

		out, err := r.execute(ctx, runID, func(ctx context.Context) (any, error) {
			return r.agent.Call(ctx, operation, args)
		})
		resultCh <- Result{RunID: runID, Output: out, Err: err}
	}()

	return runID, resultCh, nil
}

// Call invokes operation and waits for its result.
func (r *Runner) Call(ctx context.Context, operation string, args []any) (any, error) {
	if !r.declares(operation) {
		return nil, fmt.Errorf("%w: %s has no operation %q", core.ErrUnsupportedOperation, r.name, operation)
	}
	return r.execute(ctx, uuid.NewString(), func(ctx context.Context) (any, error) {
		return r.agent.Call(ctx, operation, args)
	})
}

// Invoke calls the agent's first operation with arguments taken from inputs
// by their bound names.
func (r *Runner) Invoke(ctx context.Context, inputs map[string]any) (any, error) {
	return r.execute(ctx, uuid.NewString(), func(ctx context.Context) (any, error) {
		if inv, ok := r.agent.(interface {
			Invoke(ctx context.Context, inputs map[string]any) (any, error)
		}); ok {
			return inv.Invoke(ctx, inputs)
		}

		specs := r.agent.Specifications()
		if len(specs) == 0 {
			return nil, fmt.Errorf("%w: %s declares no operation", core.ErrUnsupportedOperation, r.name)
		}
		bb := core.NewBlackboard("")
		bb.WriteStates(inputs)
		args, err := specs[0].InvocationArguments(bb)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", r.name, err)
		}
		return r.agent.Call(ctx, specs[0].Operation(), args)
	})
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// Active returns the number of asynchronous runs still in progress.
func (r *Runner) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

func (r *Runner) declares(operation string) bool {
	for _, spec := range r.agent.Specifications() {
		if spec.Operation() == operation {
			return true
		}
	}
	return false
}

type outcome struct {
	out any
	err error
}

// execute waits for a free slot, then runs fn under the configured deadline.
// The slot is held until fn returns, even when the caller gave up waiting.
func (r *Runner) execute(ctx context.Context, runID string, fn func(context.Context) (any, error)) (any, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cancel := func() {}
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	start := time.Now()
	r.logger.Debug("run started", "run", runID, "agent", r.name)

	done := make(chan outcome, 1)
	go func() {
		defer func() { <-r.sem }()
		out, err := fn(ctx)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		cancel()
		if o.err != nil {
			var agentErr *core.AgentError
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.As(o.err, &agentErr) {
				o.err = core.NewAgentError(r.name, context.DeadlineExceeded)
			}
			r.logger.Warn("run failed", "run", runID, "agent", r.name, "duration", time.Since(start), "error", o.err)
			return nil, o.err
		}
		r.logger.Debug("run completed", "run", runID, "agent", r.name, "duration", time.Since(start))
		return o.out, nil
	case <-ctx.Done():
		err := ctx.Err()
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			err = core.NewAgentError(r.name, context.DeadlineExceeded)
		}
		r.logger.Warn("run aborted", "run", runID, "agent", r.name, "duration", time.Since(start), "error", err)
		return nil, err
	}
}
