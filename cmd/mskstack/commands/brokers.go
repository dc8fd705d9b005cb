package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Brokers returns the command that prints the bootstrap broker strings.
func Brokers() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "brokers",
		Short: "Print the bootstrap brokers of the cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Brokers(cmd.Context(), configPath, jsonOutput)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
