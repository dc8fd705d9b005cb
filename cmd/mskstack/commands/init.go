package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
	"github.com/imamik/mskstack/internal/config"
)

// Init returns the command for creating a stack configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "mskstack.yaml")
//	--non-interactive: Write the defaults without running the wizard
func Init() *cobra.Command {
	var (
		outputPath     string
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a stack configuration",
		Long: `Create a stack configuration file.

The wizard asks about:

  - Stack name and region
  - Cluster type (provisioned or serverless)
  - Broker size and count, and whether to enable mTLS
  - Where the Kafka admin handler package is stored
  - Initial topics

Use --non-interactive to write a provisioned cluster with default
settings, for example in scripts or CI.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, !nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", config.DefaultConfigFilename, "Output file path")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Write the defaults without running the wizard")

	return cmd
}
