package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Diff returns the command that previews a deploy.
func Diff() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the changes a deploy would make",
		Long: `Show the resource changes a deploy would make.

A CloudFormation change set is created for the synthesized template,
listed, and deleted again. Nothing is changed in the stack. Resources
that would be replaced are marked.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Diff(cmd.Context(), configPath)
		},
	}

	addConfigFlag(cmd, &configPath)

	return cmd
}
