// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/imamik/mskstack/internal/config"
	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/platform/kafka"
	"github.com/imamik/mskstack/internal/synth"
	"github.com/imamik/mskstack/internal/telemetry"
	"github.com/imamik/mskstack/internal/util/labels"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/msk"
)

// PushgatewayEnv names the Pushgateway that receives run metrics.
const PushgatewayEnv = "MSKSTACK_PUSHGATEWAY_URL"

// toolVersion is recorded in the stack tags.
var toolVersion = "dev"

// SetVersion sets the version recorded in stack tags.
func SetVersion(v string) {
	toolVersion = v
}

// Cloud is the AWS surface the handlers use. *aws.Clients implements it.
type Cloud interface {
	PrepareTemplate(ctx context.Context, body []byte, in awsplatform.StageInput) (awsplatform.Template, func(), error)
	Deploy(ctx context.Context, in awsplatform.DeployInput) (*awsplatform.DeployResult, error)
	Diff(ctx context.Context, in awsplatform.DeployInput) ([]awsplatform.Change, error)
	DeleteStack(ctx context.Context, name string, timeout, poll time.Duration) (bool, error)
	DescribeStack(ctx context.Context, name string) (*awsplatform.StackInfo, error)
	WatchEvents(ctx context.Context, name string, since time.Time, interval time.Duration, fn func(awsplatform.StackEvent)) error
	DescribeCluster(ctx context.Context, arn string) (*awsplatform.ClusterInfo, error)
	GetBootstrapBrokers(ctx context.Context, arn string) (*awsplatform.BootstrapBrokers, error)
	GetCertificate(ctx context.Context, secretArn string) (tls.Certificate, error)
}

// DriftChecker compares declared Kafka resources with a live cluster.
type DriftChecker interface {
	Check(ctx context.Context, topics []msk.MskTopic, acls []msk.Acl) (*kafka.Report, error)
	Close() error
}

// session is a connected AWS environment.
type session struct {
	cloud  Cloud
	region string
	// connect opens a read-only admin connection to the cluster.
	connect func(ctx context.Context, opts kafka.Options) (DriftChecker, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// findConfigFile finds mskstack.yaml (for testing injection).
	findConfigFile = config.FindConfigFile

	// loadConfigFile loads config from file (for testing injection).
	loadConfigFile = config.Load

	// newSession creates the AWS clients for a stack.
	newSession = func(ctx context.Context, cfg *config.Config, timeouts *config.Timeouts, rec *telemetry.Recorder) (*session, error) {
		clients, err := awsplatform.NewClients(ctx, awsplatform.Options{
			Region:        cfg.Stack.Region,
			Profile:       os.Getenv("AWS_PROFILE"),
			RetryAttempts: timeouts.RetryMaxAttempts,
			RetryDelay:    timeouts.RetryInitialDelay,
		})
		if err != nil {
			return nil, err
		}
		clients.OnCall = rec.RecordAPICall
		return &session{
			cloud:  clients,
			region: clients.Region,
			connect: func(ctx context.Context, opts kafka.Options) (DriftChecker, error) {
				opts.Region = clients.Region
				opts.Credentials = clients.Credentials
				return kafka.Connect(ctx, opts)
			},
		}, nil
	}

	// isInteractive reports whether stdout is a terminal.
	isInteractive = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// writeFile writes data to a file (for testing injection).
	writeFile = os.WriteFile
)

// loadConfig loads and validates the stack configuration.
// If configPath is empty, it looks for mskstack.yaml in the current
// directory and its parents.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		path, err := findConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no config file found: %w\nRun 'mskstack init' to create one", err)
		}
		configPath = path
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// synthesize builds the template of a configuration and renders it as JSON.
func synthesize(ctx context.Context, cfg *config.Config) (*synth.Result, []byte, error) {
	result, err := synth.Build(ctx, cfg, synth.NewConsoleObserver())
	if err != nil {
		return nil, nil, fmt.Errorf("synthesis failed: %w", err)
	}
	body, err := result.Stack.Render(cfn.FormatJSON)
	if err != nil {
		return nil, nil, err
	}
	return result, body, nil
}

// resourceTypes maps the logical IDs of a template to their types.
func resourceTypes(result *synth.Result) map[string]string {
	tmpl := result.Stack.Template()
	out := make(map[string]string, len(tmpl.Resources))
	for id, r := range tmpl.Resources {
		out[id] = r.Type
	}
	return out
}

// countByType counts template resources per type.
func countByType(resources map[string]string) map[string]int {
	counts := make(map[string]int)
	for _, t := range resources {
		counts[t]++
	}
	return counts
}

// stageInput locates where a template too large to send inline goes.
func stageInput(cfg *config.Config) awsplatform.StageInput {
	return awsplatform.StageInput{
		Bucket:    cfg.Staging.Bucket,
		Prefix:    cfg.Staging.Prefix,
		StackName: cfg.Stack.Name,
		Create:    cfg.Staging.Create,
	}
}

// stackTags returns the user's tags plus the mskstack tags.
func stackTags(cfg *config.Config) map[string]string {
	return labels.NewTagBuilder(cfg.Stack.Name).
		WithVersion(toolVersion).
		Merge(cfg.Stack.Tags).
		Build()
}

// pushMetrics sends the run's metrics to the Pushgateway named by
// MSKSTACK_PUSHGATEWAY_URL. Failures are logged, never returned.
func pushMetrics(ctx context.Context, rec *telemetry.Recorder) {
	url := os.Getenv(PushgatewayEnv)
	if url == "" {
		return
	}
	if err := rec.Push(context.WithoutCancel(ctx), url); err != nil {
		log.Printf("Warning: %v", err)
	}
}

// clusterArn returns the ARN of the stack's cluster from its outputs, or
// from the configuration for external clusters.
func clusterArn(cfg *config.Config, outputs map[string]string) (string, error) {
	if arn := outputs[synth.OutputClusterArn]; arn != "" {
		return arn, nil
	}
	if cfg.Cluster.Type == config.ClusterTypeExternal && cfg.Cluster.External != nil {
		return cfg.Cluster.External.Arn, nil
	}
	return "", fmt.Errorf("stack %s has no %s output: is it deployed?", cfg.Stack.Name, synth.OutputClusterArn)
}
