package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
)

// OperationFunc runs a stack operation, sending the stack's events on
// the channel as they happen. The channel is closed by the caller.
type OperationFunc func(ctx context.Context, ch chan<- awsplatform.StackEvent) (*awsplatform.DeployResult, error)

// RunDeployTUI wraps a stack operation with a Bubble Tea TUI.
// The operation runs in a background goroutine and streams its events to
// the view. Quitting the view cancels ctx for the operation and returns
// ErrDetached.
func RunDeployTUI(ctx context.Context, m Model, operation OperationFunc) (*awsplatform.DeployResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		ch := make(chan awsplatform.StackEvent, 16)
		type outcome struct {
			result *awsplatform.DeployResult
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			defer close(ch)
			result, err := operation(ctx, ch)
			done <- outcome{result, err}
		}()

		for e := range ch {
			p.Send(StackEventMsg{Event: e})
		}

		out := <-done
		if out.err != nil {
			p.Send(ErrMsg{Err: out.err})
			return
		}
		p.Send(DeployDoneMsg{Result: out.result})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return nil, fm.Err
	}
	if !fm.Done {
		return nil, ErrDetached
	}
	return fm.Result, nil
}
