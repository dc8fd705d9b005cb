package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/mskstack/cmd/mskstack/handlers"
)

// Doctor returns the command for diagnosing a deployed stack.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: auto-detect mskstack.yaml)
//	--json: Output in JSON format
func Doctor() *cobra.Command {
	var configPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the stack, cluster and Kafka resources",
		Long: `Diagnose a deployed stack.

Checks, in order:
  - The configuration still synthesizes
  - The stack is in a settled, successful state
  - The cluster is ACTIVE
  - Bootstrap brokers exist for the admin authentication method
  - Declared topics and ACLs exist on the cluster

Topics and ACLs are read over mTLS when an admin certificate secret is
configured, and over IAM otherwise. The command exits non-zero when a
check fails or drift is found.

Examples:
  mskstack doctor
  mskstack doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), configPath, jsonOutput)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
