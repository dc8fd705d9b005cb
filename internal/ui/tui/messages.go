// Package tui provides a Bubble Tea-based terminal UI for stack deployments.
package tui

import awsplatform "github.com/imamik/mskstack/internal/platform/aws"

// StackEventMsg carries one event of the stack's event log.
type StackEventMsg struct {
	Event awsplatform.StackEvent
}

// DeployDoneMsg signals that the stack operation finished.
type DeployDoneMsg struct {
	Result *awsplatform.DeployResult
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }
