package synth

import (
	"context"
	"fmt"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

// State holds the shared results of synthesis phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Network results
	Vpc        *vpc.Vpc
	VpcCreated bool

	// Cluster results
	Cluster Cluster

	// Grantees caches imported roles by role name or ARN, so grants for
	// the same role share one attached policy.
	Grantees map[string]iam.Grantable

	// Logical IDs declared per phase
	Topics   []string
	ACLs     []string
	Grants   []string
	Policies []string
}

// NewState creates an empty synthesis state.
func NewState() *State {
	return &State{
		Grantees: make(map[string]iam.Grantable),
	}
}

// Context wraps all dependencies and state needed for a synthesis phase.
type Context struct {
	context.Context
	Config   *config.Config
	Stack    *cfn.Stack
	State    *State
	Observer Observer
}

// NewContext creates a synthesis context with an empty stack named after
// the configuration.
func NewContext(ctx context.Context, cfg *config.Config, observer Observer) (*Context, error) {
	stack, err := cfn.NewStack(cfg.Stack.Name, cfn.Env{
		Account: cfg.Stack.Account,
		Region:  cfg.Stack.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stack: %w", err)
	}
	stack.Description = cfg.Stack.Description
	if stack.Description == "" {
		stack.Description = fmt.Sprintf("MSK cluster %s (mskstack)", cfg.Cluster.Name)
	}
	for k, v := range cfg.Stack.Tags {
		stack.Tags[k] = v
	}

	if observer == nil {
		observer = NewConsoleObserver()
	}
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Stack:    stack,
		State:    NewState(),
		Observer: observer.WithFields(map[string]string{"stack": cfg.Stack.Name}),
	}, nil
}
