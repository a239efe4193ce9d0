package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentsCommand(configPath *string) *cobra.Command {
	var workflowPath string

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the agent cards of a workflow",
		Long: `Agents prints one card per agent operation, in the form a supervisor
planner sees them: {name: description, [arguments]}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, wf, err := openWorkflow(*configPath, workflowPath)
			if err != nil {
				return err
			}
			defer func() { _ = kit.Close(context.Background()) }()

			for _, s := range wf.Summaries() {
				for _, card := range s.Cards {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), card); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "Workflow file (defaults to workflow.path)")

	return cmd
}
