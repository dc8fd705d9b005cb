package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Cost returns the command for stack cost estimates.
func Cost() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
		compact    bool
		prices     string
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Estimate the monthly cost of the stack",
		Long: `Estimate the monthly on-demand cost of the stack.

The estimate covers brokers, broker storage, serverless cluster and
partition hours, and NAT gateways. Data transfer is not included.

Prices come from --prices (a JSON price sheet URL or file), then
MSKSTACK_PRICES, then built-in us-east-1 prices.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cost(cmd.Context(), configPath, jsonOutput, compact, prices)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print a single summary line")
	cmd.Flags().StringVar(&prices, "prices", "", "Price sheet URL or file")

	return cmd
}
