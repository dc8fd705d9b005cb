package synth

import (
	"fmt"
	"time"
)

// Phase defines the interface for a synthesis phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Synthesize declares the resources of this phase.
	Synthesize(ctx *Context) error
}

// RunPhases executes all synthesis phases sequentially.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting synthesis with %d phases...", len(phases))

	for i, phase := range phases {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("synthesis canceled before %s phase: %w", phase.Name(), err)
		}

		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))
		LogPhaseStart(ctx.Observer, name)

		if err := phase.Synthesize(ctx); err != nil {
			LogPhaseFailed(ctx.Observer, name, err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		LogPhaseComplete(ctx.Observer, name, time.Since(phaseStart))
	}

	ctx.Observer.Printf("Synthesis completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

// phaseFunc adapts a function to the Phase interface.
type phaseFunc struct {
	name string
	fn   func(*Context) error
}

func (p phaseFunc) Name() string                  { return p.name }
func (p phaseFunc) Synthesize(ctx *Context) error { return p.fn(ctx) }

// DefaultPhases returns the phases that build a complete stack, in order.
func DefaultPhases() []Phase {
	return []Phase{
		phaseFunc{"network", synthesizeNetwork},
		phaseFunc{"cluster", synthesizeCluster},
		phaseFunc{"topics", synthesizeTopics},
		phaseFunc{"acls", synthesizeACLs},
		phaseFunc{"grants", synthesizeGrants},
		phaseFunc{"policies", synthesizePolicies},
		phaseFunc{"outputs", synthesizeOutputs},
	}
}
