// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the mskstack CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mskstack",
		Short:         "Deploy Amazon MSK clusters, topics and ACLs with CloudFormation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Stack lifecycle
	cmd.AddCommand(Init())
	cmd.AddCommand(Synth())
	cmd.AddCommand(Diff())
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Destroy())

	// Inspection
	cmd.AddCommand(Brokers())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Cost())

	// Utility
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// addConfigFlag binds the -c/--config flag shared by all stack commands.
func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", "", "Path to configuration file (default: mskstack.yaml)")
}
