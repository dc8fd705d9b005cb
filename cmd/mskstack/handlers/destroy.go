package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/imamik/mskstack/internal/config"
	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/telemetry"
	"github.com/imamik/mskstack/internal/ui/tui"
)

// errNotConfirmed is returned when a destroy is declined.
var errNotConfirmed = errors.New("destroy canceled")

// confirmDestroy asks before deleting a stack (for testing injection).
var confirmDestroy = func(ctx context.Context, stackName string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Delete stack %s?", stackName)).
			Description("The cluster, its topics and everything else in the stack are deleted.\nResources with a retain policy are kept.").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed),
	))
	err := form.RunWithContext(ctx)
	return confirmed, err
}

// Destroy deletes the stack and waits until CloudFormation is done.
//
// Without yes, the user is asked to confirm; in non-interactive sessions
// yes is required. The wait is bounded by MSKSTACK_DESTROY_TIMEOUT.
func Destroy(ctx context.Context, configPath string, yes, watch bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if err := confirm(ctx, cfg.Stack.Name, yes); err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	rec := telemetry.New(cfg.Stack.Name)
	defer pushMetrics(ctx, rec)

	s, err := newSession(ctx, cfg, timeouts, rec)
	if err != nil {
		return err
	}

	// The template only feeds the live view, so a config that no longer
	// synthesizes does not block the delete.
	resources := map[string]string{}
	if result, _, err := synthesize(ctx, cfg); err == nil {
		resources = resourceTypes(result)
	}

	log.Printf("Destroying stack %s in %s", cfg.Stack.Name, s.region)

	start := time.Now()
	existed, err := destroyStack(ctx, s.cloud, cfg.Stack.Name, timeouts, watch, tui.NewDestroyModel(cfg.Stack.Name, s.region, resources))
	rec.RecordOperation("destroy", err, time.Since(start))
	if err != nil {
		return err
	}

	if !existed {
		fmt.Printf("Stack %s does not exist, nothing to destroy.\n", cfg.Stack.Name)
		return nil
	}
	fmt.Printf("Stack %s destroyed.\n", cfg.Stack.Name)
	return nil
}

func confirm(ctx context.Context, stackName string, yes bool) error {
	if yes {
		return nil
	}
	if !isInteractive() {
		return fmt.Errorf("refusing to destroy stack %s without confirmation: pass --yes", stackName)
	}
	ok, err := confirmDestroy(ctx, stackName)
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return errNotConfirmed
	}
	return nil
}

// destroyStack deletes the stack. It reports false when there was none.
func destroyStack(ctx context.Context, cloud Cloud, stackName string, timeouts *config.Timeouts, watch bool, m tui.Model) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Destroy)
	defer cancel()

	existed := false
	operation := func(ctx context.Context) (*awsplatform.DeployResult, error) {
		var err error
		existed, err = cloud.DeleteStack(ctx, stackName, timeouts.Destroy, timeouts.PollInterval)
		if err != nil {
			return nil, err
		}
		return &awsplatform.DeployResult{}, nil
	}
	if _, err := runOperation(ctx, cloud, stackName, watch, timeouts.PollInterval, m, operation); err != nil {
		return false, fmt.Errorf("destroy failed: %w", err)
	}
	return existed, nil
}
