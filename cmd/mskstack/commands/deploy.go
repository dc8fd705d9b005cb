package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Deploy returns the command that creates or updates the stack.
func Deploy() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the stack",
		Long: `Synthesize the stack and create or update it in CloudFormation.

Templates larger than 51,200 bytes are uploaded to staging.bucket first.
A provisioned cluster takes 20 to 40 minutes to create.

With --watch, stack events are shown while CloudFormation works: as a
live view in a terminal, as log lines otherwise.

Environment:
  MSKSTACK_DEPLOY_TIMEOUT    bound on the whole deploy (default 60m)
  MSKSTACK_POLL_INTERVAL     stack status poll interval (default 10s)
  MSKSTACK_PUSHGATEWAY_URL   push run metrics to this Pushgateway

Examples:
  mskstack deploy
  mskstack deploy -c prod.yaml --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), configPath, watch)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream stack events while deploying")

	return cmd
}
