package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/cognisphere"
	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/config"
	"github.com/hupe1980/cognisphere/declarative"
)

// builtinFuncs back func agents declared in workflow files run from the CLI.
var builtinFuncs = map[string]agent.Func{
	"echo": func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return args[0], nil
	},
	"upper": func(_ context.Context, args []any) (any, error) {
		return strings.ToUpper(joinArgs(args, " ")), nil
	},
	"lower": func(_ context.Context, args []any) (any, error) {
		return strings.ToLower(joinArgs(args, " ")), nil
	},
	"join": func(_ context.Context, args []any) (any, error) {
		return joinArgs(args, "\n"), nil
	},
}

func joinArgs(args []any, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, sep)
}

// openWorkflow loads the configuration, builds a kit and compiles the
// workflow at path, falling back to the configured workflow path.
func openWorkflow(configPath, path string) (*cognisphere.Kit, *declarative.Workflow, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		path = cfg.Workflow.Path
	}
	if path == "" {
		return nil, nil, fmt.Errorf("no workflow given: pass --workflow or set workflow.path")
	}

	kit, err := cognisphere.New(cfg, func(o *cognisphere.Options) { o.Funcs = builtinFuncs })
	if err != nil {
		return nil, nil, err
	}

	wf, err := kit.LoadWorkflow(path)
	if err != nil {
		_ = kit.Close(context.Background())
		return nil, nil, err
	}
	return kit, wf, nil
}

// parseInputs converts "key=value" pairs into a state map.
func parseInputs(pairs []string) (map[string]any, error) {
	inputs := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid input %q: expected key=value", p)
		}
		inputs[strings.TrimSpace(k)] = v
	}
	return inputs, nil
}
