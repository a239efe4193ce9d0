package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCommand(configPath *string) *cobra.Command {
	var workflowPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile a workflow and print its agents",
		Long: `Validate compiles a workflow file without running it and prints a YAML
summary of every agent: type, operation cards, output and sub-agents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, wf, err := openWorkflow(*configPath, workflowPath)
			if err != nil {
				return err
			}
			defer func() { _ = kit.Close(context.Background()) }()

			doc := struct {
				Workflow string `yaml:"workflow"`
				Entry    string `yaml:"entry"`
				Agents   any    `yaml:"agents"`
			}{wf.Name(), wf.EntryName(), wf.Summaries()}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encoding summary: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "Workflow file (defaults to workflow.path)")

	return cmd
}
