package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/binding"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRunCommand(configPath *string) *cobra.Command {
	var (
		workflowPath string
		agentName    string
		inputs       []string
		sessionID    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow agent",
		Long: `Run invokes an agent of a workflow file, by default its entry agent.

Inputs are written to the session blackboard before the agent runs.

Examples:
  # Run the entry agent
  cognisphere run --workflow story.yaml --input topic=dragons --input style=comic

  # Run one agent of the workflow within a named session
  cognisphere run -w story.yaml --agent editor --session s-1 --input story="A dragon slept."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			kit, wf, err := openWorkflow(*configPath, workflowPath)
			if err != nil {
				return err
			}
			defer func() { _ = kit.Close(context.Background()) }()

			target := wf.Entry()
			if agentName != "" {
				a, ok := wf.Agent(agentName)
				if !ok {
					return fmt.Errorf("workflow %s has no agent %q", wf.Name(), agentName)
				}
				target = a
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := kit.Runner(target)
			if sessionID == "" {
				out, err := r.Invoke(ctx, state)
				if err != nil {
					return err
				}
				return printOutput(cmd, out)
			}

			// Session runs operate on the session's blackboard, so that
			// session-id parameters and chat memory resolve to sessionID.
			bb := kit.Registry.GetOrCreate(sessionID)
			bb.WriteStates(state)
			if f, ok := target.(*agent.Facade); ok {
				r = kit.Runner(f.WithBlackboard(bb))
			}
			spec := target.Specifications()[0]
			callArgs, err := spec.InvocationArguments(bb)
			if binding.IsUntyped(spec) {
				callArgs, err = []any{state}, nil
			}
			if err != nil {
				return err
			}

			out, err := r.Call(ctx, spec.Operation(), callArgs)
			if err != nil {
				return err
			}
			return printOutput(cmd, out)
		},
	}

	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "Workflow file (defaults to workflow.path)")
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "Agent to run (defaults to the entry agent)")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Input as key=value (repeatable)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id")

	return cmd
}

func printOutput(cmd *cobra.Command, out any) error {
	switch v := out.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(cmd.OutOrStdout(), v)
		return err
	default:
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}
