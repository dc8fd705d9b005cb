package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Synth returns the command that renders the CloudFormation template.
func Synth() *cobra.Command {
	var (
		configPath string
		outputPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Render the CloudFormation template of the stack",
		Long: `Render the CloudFormation template of the stack without deploying it.

The template is printed to stdout unless --output is given.

Examples:
  mskstack synth
  mskstack synth --format yaml -o template.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Synth(cmd.Context(), configPath, outputPath, format)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the template to a file")
	cmd.Flags().StringVar(&format, "format", "json", "Template format: json or yaml")

	return cmd
}
