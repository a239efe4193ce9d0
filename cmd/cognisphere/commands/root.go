package commands

import (
	"fmt"
	"os"

	"github.com/hupe1980/cognisphere"
	"github.com/spf13/cobra"
)

var versionString = "dev"

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	cognisphere.Version = v
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// NewRootCommand returns the cognisphere command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "cognisphere",
		Short: "Cognisphere - declarative multi-agent workflows",
		Long: `Cognisphere composes model-backed and custom agents into sequence,
loop, conditional and supervised workflows that share state through a
per-session blackboard.

Configuration is read from an optional YAML file and COGNISPHERE_
environment variables (COGNISPHERE_MODEL_PROVIDER=openai).`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")

	root.AddCommand(
		newRunCommand(&configPath),
		newValidateCommand(&configPath),
		newAgentsCommand(&configPath),
	)

	return root
}
