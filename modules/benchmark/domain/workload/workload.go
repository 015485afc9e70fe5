// Package workload defines the two benchmark workflows. Chain isolates the cost of a step
// transition; FanOut isolates the cost of scheduling and joining many concurrent steps.
package workload

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/wfbench/pkg/workflow"
)

type Definition = workflow.Definition

const (
	ChainSteps  = 50
	FanOutWidth = 100
)

func increment(_ context.Context, v int) (int, error) {
	return v + 1, nil
}

func ping(_ context.Context, i int) (string, error) {
	return fmt.Sprintf("pong-%d", i), nil
}

// Chain runs steps increments one after another, each scheduled only once the
// previous one has resolved. The result equals steps.
func Chain(steps int) Definition {
	return Definition{
		Name: ChainWorkflowName,
		Fn: func(wc *workflow.Context) (any, error) {
			value := 0
			for i := 0; i < steps; i++ {
				in := value
				out, err := workflow.StepAs(wc, "increment", func(ctx context.Context) (int, error) {
					return increment(ctx, in)
				})
				if err != nil {
					return nil, err
				}
				value = out
			}
			return value, nil
		},
	}
}

// FanOut schedules width pings at once and joins them. The result is the number of
// completed pings; the first failure fails the run.
func FanOut(width int) Definition {
	return Definition{
		Name: FanOutWorkflowName,
		Fn: func(wc *workflow.Context) (any, error) {
			futures := make([]*workflow.Future, width)
			for i := range futures {
				i := i
				futures[i] = wc.Go("ping", func(ctx context.Context) (any, error) {
					return ping(ctx, i)
				})
			}

			g, ctx := errgroup.WithContext(wc.Context())
			results := make([]string, width)
			for i, f := range futures {
				i, f := i, f
				g.Go(func() error {
					v, err := f.Get(ctx)
					if err != nil {
						return err
					}
					s, ok := v.(string)
					if !ok {
						return fmt.Errorf("ping %d returned %T", i, v)
					}
					results[i] = s
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return len(results), nil
		},
	}
}
