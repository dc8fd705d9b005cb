package handlers

import (
	"context"
	"fmt"
	"os"

	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/pkg/cfn"
)

// Synth renders the CloudFormation template of the stack to outputPath, or
// to stdout when outputPath is empty.
func Synth(ctx context.Context, configPath, outputPath, format string) error {
	f, err := cfn.ParseFormat(format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	result, _, err := synthesize(ctx, cfg)
	if err != nil {
		return err
	}
	data, err := result.Stack.Render(f)
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := writeFile(outputPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	fmt.Printf("Wrote %s template of stack %s to %s (%d resources, %d topics, %d ACLs)\n",
		f, cfg.Stack.Name, outputPath, len(result.Stack.LogicalIDs()), len(result.Topics), len(result.ACLs))
	if len(data) > awsplatform.MaxInlineTemplateSize && cfg.Staging.Bucket == "" {
		fmt.Println("Note: the template is over the inline limit; set staging.bucket before deploying.")
	}
	return nil
}
