package handlers

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/imamik/mskstack/internal/config"
	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/telemetry"
	"github.com/imamik/mskstack/internal/ui/tui"
)

// runDeployTUI runs a stack operation behind the live view (for testing injection).
var runDeployTUI = tui.RunDeployTUI

// Deploy synthesizes the stack and creates or updates it in CloudFormation.
//
// With watch set, the stack's events are streamed while CloudFormation works:
// as a live view when stdout is a terminal, as log lines otherwise.
//
// The deploy is bounded by MSKSTACK_DEPLOY_TIMEOUT. When
// MSKSTACK_PUSHGATEWAY_URL is set, the run's metrics are pushed there.
func Deploy(ctx context.Context, configPath string, watch bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	timeouts := config.LoadTimeouts()
	rec := telemetry.New(cfg.Stack.Name)
	defer pushMetrics(ctx, rec)

	result, body, err := synthesize(ctx, cfg)
	if err != nil {
		return err
	}
	resources := resourceTypes(result)
	rec.RecordResources(countByType(resources))

	s, err := newSession(ctx, cfg, timeouts, rec)
	if err != nil {
		return err
	}

	log.Printf("Deploying stack %s (%d resources) to %s", cfg.Stack.Name, len(resources), s.region)

	start := time.Now()
	res, err := deployStack(ctx, s.cloud, cfg, body, timeouts, watch, tui.NewDeployModel(cfg.Stack.Name, s.region, resources))
	rec.RecordOperation("deploy", err, time.Since(start))
	if err != nil {
		return err
	}

	printDeployResult(cfg.Stack.Name, res)
	return nil
}

// deployStack stages the template when needed and deploys it.
func deployStack(ctx context.Context, cloud Cloud, cfg *config.Config, body []byte, timeouts *config.Timeouts, watch bool, m tui.Model) (*awsplatform.DeployResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Deploy)
	defer cancel()

	tmpl, cleanup, err := cloud.PrepareTemplate(ctx, body, stageInput(cfg))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in := awsplatform.DeployInput{
		StackName:    cfg.Stack.Name,
		Template:     tmpl,
		Tags:         stackTags(cfg),
		Timeout:      timeouts.Deploy,
		PollInterval: timeouts.PollInterval,
	}
	operation := func(ctx context.Context) (*awsplatform.DeployResult, error) {
		return cloud.Deploy(ctx, in)
	}
	return runOperation(ctx, cloud, cfg.Stack.Name, watch, timeouts.PollInterval, m, operation)
}

// runOperation runs a stack operation, streaming its events when watch is set.
func runOperation(
	ctx context.Context,
	cloud Cloud,
	stackName string,
	watch bool,
	poll time.Duration,
	m tui.Model,
	operation func(ctx context.Context) (*awsplatform.DeployResult, error),
) (*awsplatform.DeployResult, error) {
	if !watch {
		return operation(ctx)
	}

	if isInteractive() {
		return runDeployTUI(ctx, m, func(ctx context.Context, ch chan<- awsplatform.StackEvent) (*awsplatform.DeployResult, error) {
			return withEvents(ctx, cloud, stackName, poll, operation, func(e awsplatform.StackEvent) { ch <- e })
		})
	}
	return withEvents(ctx, cloud, stackName, poll, operation, logEvent)
}

// withEvents runs operation while polling the stack's events into fn.
// Events are delivered until the operation returns.
func withEvents(
	ctx context.Context,
	cloud Cloud,
	stackName string,
	poll time.Duration,
	operation func(ctx context.Context) (*awsplatform.DeployResult, error),
	fn func(awsplatform.StackEvent),
) (*awsplatform.DeployResult, error) {
	since := time.Now().Add(-time.Second)
	watchCtx, stop := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := cloud.WatchEvents(watchCtx, stackName, since, poll, fn); err != nil {
			log.Printf("Warning: stopped watching stack events: %v", err)
		}
	}()

	res, err := operation(ctx)
	stop()
	wg.Wait()
	return res, err
}

func logEvent(e awsplatform.StackEvent) {
	if e.Reason != "" {
		log.Printf("%-28s %-36s %s: %s", e.Status, e.LogicalID, e.ResourceType, e.Reason)
		return
	}
	log.Printf("%-28s %-36s %s", e.Status, e.LogicalID, e.ResourceType)
}

// printDeployResult prints the outcome and the stack outputs.
func printDeployResult(stackName string, res *awsplatform.DeployResult) {
	fmt.Println()
	switch res.Operation {
	case awsplatform.OperationNone:
		fmt.Printf("Stack %s is up to date.\n", stackName)
	case awsplatform.OperationCreate:
		fmt.Printf("Stack %s created.\n", stackName)
	default:
		fmt.Printf("Stack %s updated.\n", stackName)
	}

	if len(res.Outputs) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Outputs")
	fmt.Println("-------")
	keys := make([]string, 0, len(res.Outputs))
	for k := range res.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-36s %s\n", k, res.Outputs[k])
	}
	fmt.Println()
}
