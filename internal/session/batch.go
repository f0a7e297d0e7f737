package session

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll executes independent sessions concurrently, one per input.
// Sessions share nothing but the gateway, whose mutable state is internally
// synchronized, so the only coordination needed is the concurrency cap.
// The returned slice is index-aligned with inputs. The first invalid input
// cancels the remaining sessions.
func (o *Orchestrator) RunAll(ctx context.Context, inputs []string, parallelism int) ([]*DebugState, error) {
	if parallelism < 1 {
		parallelism = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	results := make([]*DebugState, len(inputs))
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			state, err := o.Run(ctx, input)
			if err != nil {
				return err
			}
			results[i] = state
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
