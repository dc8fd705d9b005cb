package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Destroy returns the destroy command.
//
// The destroy command deletes the CloudFormation stack. Resources with a
// retain removal policy are left in place by CloudFormation.
func Destroy() *cobra.Command {
	var (
		configPath string
		yes        bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack and its cluster",
		Long: `Delete the CloudFormation stack.

This deletes everything the stack created, including:
  - The MSK cluster and its configuration
  - Topics and ACLs, unless their removal policy is retain
  - The admin handler functions and their roles
  - The VPC, when the stack created it

Example:
  mskstack destroy -c mskstack.yaml --yes

WARNING: This operation is irreversible. Data in deleted topics is lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, yes, watch)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream stack events while deleting")

	return cmd
}
