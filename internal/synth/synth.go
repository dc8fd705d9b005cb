package synth

import (
	"context"
	"fmt"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/msk"
)

// Result is a synthesized stack together with the Kafka resources its
// admin handler will create.
type Result struct {
	Stack  *cfn.Stack
	Topics []msk.MskTopic
	ACLs   []msk.Acl
}

// Synthesize builds the stack described by cfg, logging to the console.
// cfg must have defaults applied and be valid.
func Synthesize(ctx context.Context, cfg *config.Config) (*cfn.Stack, error) {
	return SynthesizeWithObserver(ctx, cfg, NewConsoleObserver())
}

// SynthesizeWithObserver builds the stack described by cfg, reporting
// progress to observer.
func SynthesizeWithObserver(ctx context.Context, cfg *config.Config, observer Observer) (*cfn.Stack, error) {
	r, err := Build(ctx, cfg, observer)
	if err != nil {
		return nil, err
	}
	return r.Stack, nil
}

// Build runs all phases and validates the template.
func Build(ctx context.Context, cfg *config.Config, observer Observer) (*Result, error) {
	sctx, err := NewContext(ctx, cfg, observer)
	if err != nil {
		return nil, err
	}
	if err := RunPhases(sctx, DefaultPhases()); err != nil {
		return nil, err
	}
	if err := sctx.Stack.Validate(); err != nil {
		return nil, fmt.Errorf("synthesized template is invalid: %w", err)
	}
	api := sctx.State.Cluster.KafkaAPI()
	return &Result{
		Stack:  sctx.Stack,
		Topics: api.Topics(),
		ACLs:   api.ACLs(),
	}, nil
}
