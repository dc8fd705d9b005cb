package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/mskstack/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive wizard.
	runWizard = config.RunWizard

	// saveConfig writes the config to a file.
	saveConfig = config.Save
)

// Init writes a new configuration to outputPath. Without interactive set
// the wizard is skipped and its defaults are written.
func Init(ctx context.Context, outputPath string, interactive bool) error {
	if fileExists(outputPath) {
		fmt.Printf("Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	result := config.DefaultWizardResult()
	if interactive {
		printWelcome()
		var err error
		result, err = runWizard(ctx)
		if err != nil {
			return err
		}
	}

	cfg := result.ToConfig()
	if err := saveConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, result)

	if full, err := loadConfigFile(outputPath); err == nil {
		printCostHint(ctx, full, "planned")
	}
	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Println()
	fmt.Println("mskstack - Amazon MSK as CloudFormation")
	fmt.Println("=======================================")
	fmt.Println()
	fmt.Println("This wizard creates a stack configuration with sensible defaults.")
	fmt.Println("Everything it does not ask about can be changed in the YAML afterwards.")
	fmt.Println()
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, r *config.WizardResult) {
	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Stack Summary")
	fmt.Println("-------------")
	fmt.Printf("  Name:    %s\n", r.Name)
	if r.Region != "" {
		fmt.Printf("  Region:  %s\n", r.Region)
	}
	fmt.Printf("  Cluster: %s\n", r.ClusterType)
	if r.ClusterType == config.ClusterTypeProvisioned {
		fmt.Printf("  Brokers: %d x %s\n", r.Brokers, r.InstanceType)
		auth := "IAM"
		if r.MTLS {
			auth = "IAM + mTLS"
		}
		fmt.Printf("  Auth:    %s\n", auth)
	}
	fmt.Printf("  Handler: %s\n", r.HandlerS3URI)
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	step := 1
	if r.MTLS {
		fmt.Printf("  %d. Replace the REPLACE_ME certificate ARNs in %s\n", step, outputPath)
		fmt.Println()
		step++
	}
	fmt.Printf("  %d. Review %s and add topics, ACLs and grants\n", step, outputPath)
	fmt.Println()
	fmt.Printf("  %d. Preview the template:\n", step+1)
	fmt.Println("     mskstack synth")
	fmt.Println()
	fmt.Printf("  %d. Deploy the stack:\n", step+2)
	fmt.Println("     mskstack deploy --watch")
	fmt.Println()
}
