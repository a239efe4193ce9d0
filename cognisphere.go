// Package cognisphere wires the building blocks of an agent application from
// a config.Config: logger, chat model, chat memory, session registry and
// telemetry. Most applications:
//  1. Load a config.Config (config.Load)
//  2. Create a Kit via New()
//  3. Compile a declarative workflow with Kit.Compile
//  4. Drive its entry agent through Kit.Runner
//
// Agents can also be composed in code with the agent package; the Kit then
// only supplies the shared services.
package cognisphere

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/config"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/declarative"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/memory"
	"github.com/hupe1980/cognisphere/model"
	anthropicmodel "github.com/hupe1980/cognisphere/model/anthropic"
	openaimodel "github.com/hupe1980/cognisphere/model/openai"
	"github.com/hupe1980/cognisphere/runner"
	"github.com/hupe1980/cognisphere/session"
	"github.com/hupe1980/cognisphere/telemetry"
	"github.com/redis/go-redis/v9"
)

// ServiceName identifies the application in telemetry resources.
const ServiceName = "cognisphere"

// Version is reported in telemetry resources.
var Version = "dev"

// Options configures a Kit beyond what config.Config covers.
type Options struct {
	// Model overrides the model built from the configuration.
	Model model.Model
	// Memory overrides the chat memory built from the configuration.
	Memory core.ChatMemoryStore
	// Logger overrides the logger built from the configuration.
	Logger logging.Logger
	// Funcs are made available to declarative func agents.
	Funcs map[string]agent.Func
}

// Kit aggregates the services shared by the agents of one application.
type Kit struct {
	Config      *config.Config
	Logger      logging.Logger
	Model       model.Model
	Memory      core.ChatMemoryStore
	Registry    *session.Registry
	Instruments *telemetry.Instruments

	funcs   map[string]agent.Func
	closers []func(context.Context) error
}

// New creates a Kit from cfg. Close releases the memory backend and flushes
// telemetry.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Kit, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	k := &Kit{
		Config:   cfg,
		Logger:   opts.Logger,
		Registry: session.NewRegistry(),
		funcs:    opts.Funcs,
	}
	if k.Logger == nil {
		k.Logger = NewLogger(cfg.Log)
	}

	shutdown, err := telemetry.InitWithConfig(ServiceName, Version, telemetry.Config{
		Exporter:       cfg.Telemetry.Exporter,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return nil, err
	}
	k.closers = append(k.closers, shutdown)

	if k.Instruments, err = telemetry.NewInstruments(); err != nil {
		return nil, errors.Join(err, k.Close(context.Background()))
	}

	k.Model = opts.Model
	if k.Model == nil {
		if k.Model, err = NewModel(cfg.Model); err != nil {
			return nil, errors.Join(err, k.Close(context.Background()))
		}
	}

	k.Memory = opts.Memory
	if k.Memory == nil {
		mem, closeFn, err := NewMemory(cfg.Memory)
		if err != nil {
			return nil, errors.Join(err, k.Close(context.Background()))
		}
		k.Memory = mem
		k.closers = append(k.closers, func(context.Context) error { return closeFn() })
	}

	k.Logger.Debug("kit ready",
		"model", k.Model.Info().Provider,
		"memory", cfg.Memory.Provider,
		"telemetry", cfg.Telemetry.Exporter)

	return k, nil
}

// NewLogger builds the configured structured logger.
func NewLogger(cfg config.LogConfig) logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(cfg.Level), cfg.Format, cfg.AddSource)
}

// NewModel builds the configured chat model.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "mock":
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, "mock"), nil
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// NewMemory builds the configured chat memory store and the function
// releasing it.
func NewMemory(cfg config.MemoryConfig) (core.ChatMemoryStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case "inmemory":
		return memory.NewInMemoryStore(func(o *memory.Options) { o.MaxMessages = cfg.MaxMessages }), noop, nil
	case "sqlite":
		s, err := memory.OpenSQLiteStore(cfg.SQLiteDSN, func(o *memory.Options) { o.MaxMessages = cfg.MaxMessages })
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s := memory.NewRedisStore(rdb, func(o *memory.RedisOptions) {
			o.MaxMessages = cfg.MaxMessages
			if cfg.RedisPrefix != "" {
				o.Prefix = cfg.RedisPrefix
			}
		})
		return s, rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown memory provider %q", cfg.Provider)
	}
}

// Environment is a declarative.Compile option wiring the kit's services.
func (k *Kit) Environment(e *declarative.Environment) {
	e.Model = k.Model
	e.Memory = k.Memory
	e.Registry = k.Registry
	e.Logger = k.Logger
	e.Instruments = k.Instruments
	if len(k.funcs) > 0 {
		e.Funcs = k.funcs
	}
}

// Compile compiles def against the kit's services.
func (k *Kit) Compile(def *declarative.Definition, optFns ...func(e *declarative.Environment)) (*declarative.Workflow, error) {
	return declarative.Compile(def, append([]func(e *declarative.Environment){k.Environment}, optFns...)...)
}

// LoadWorkflow loads and compiles the workflow file at path.
func (k *Kit) LoadWorkflow(path string, optFns ...func(e *declarative.Environment)) (*declarative.Workflow, error) {
	def, err := declarative.Load(path)
	if err != nil {
		return nil, err
	}
	return k.Compile(def, optFns...)
}

// Runner returns a runner driving a with the configured timeout and
// concurrency limit.
func (k *Kit) Runner(a agent.Agent) *runner.Runner {
	return runner.New(a, func(o *runner.Options) {
		o.Timeout = k.Config.Runner.Timeout
		o.MaxConcurrentInvocations = k.Config.Runner.MaxConcurrentInvocations
		o.Logger = k.Logger
	})
}

// Close releases the kit's resources in reverse order of acquisition.
func (k *Kit) Close(ctx context.Context) error {
	var errs []error
	for i := len(k.closers) - 1; i >= 0; i-- {
		errs = append(errs, k.closers[i](ctx))
	}
	k.closers = nil
	return errors.Join(errs...)
}
