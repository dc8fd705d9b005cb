package handlers

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/mskstack/internal/config"
	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
)

var (
	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	diffModifyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	diffRemoveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

// Diff shows the resource changes a deploy would make, using a
// CloudFormation change set that is deleted afterwards.
func Diff(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	timeouts := config.LoadTimeouts()

	_, body, err := synthesize(ctx, cfg)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, cfg, timeouts, nil)
	if err != nil {
		return err
	}

	changes, err := diffStack(ctx, s.cloud, cfg, body, timeouts)
	if err != nil {
		return err
	}
	fmt.Print(renderChanges(cfg.Stack.Name, changes, isInteractive()))
	return nil
}

func diffStack(ctx context.Context, cloud Cloud, cfg *config.Config, body []byte, timeouts *config.Timeouts) ([]awsplatform.Change, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Doctor)
	defer cancel()

	tmpl, cleanup, err := cloud.PrepareTemplate(ctx, body, stageInput(cfg))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return cloud.Diff(ctx, awsplatform.DeployInput{
		StackName:    cfg.Stack.Name,
		Template:     tmpl,
		Tags:         stackTags(cfg),
		Timeout:      timeouts.Doctor,
		PollInterval: timeouts.PollInterval,
	})
}

// renderChanges lists changes one per line, colored when styled is set.
func renderChanges(stackName string, changes []awsplatform.Change, styled bool) string {
	if len(changes) == 0 {
		return fmt.Sprintf("Stack %s: no changes\n", stackName)
	}

	out := fmt.Sprintf("Stack %s: %d changes\n\n", stackName, len(changes))
	for _, c := range changes {
		symbol, style := changeSymbol(c.Action)
		line := fmt.Sprintf("%s %-8s %-36s %s", symbol, c.Action, c.LogicalID, c.ResourceType)
		if c.Replacement == "True" {
			line += " (replacement)"
		} else if c.Replacement == "Conditional" {
			line += " (may be replaced)"
		}
		if styled {
			line = style.Render(line)
		}
		out += line + "\n"
	}
	return out
}

func changeSymbol(action string) (string, lipgloss.Style) {
	switch action {
	case "Add":
		return "+", diffAddStyle
	case "Remove":
		return "-", diffRemoveStyle
	default:
		return "~", diffModifyStyle
	}
}
