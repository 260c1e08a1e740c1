package optim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// Factory builds a fresh, isolated objective graph. Graphs are not safe for
// concurrent use, so every worker of a sweep owns one.
type Factory func() (optimizable.Objective, error)

// GradientSweep runs TaylorTest at x along every direction using up to
// workers goroutines (1 when workers < 1). Results are indexed like
// directions. The first failure cancels the remaining work.
func GradientSweep(ctx context.Context, factory Factory, x []float64, directions [][]float64, eps []float64, workers int) ([]*TaylorResult, error) {
	workers = max(workers, 1)
	workers = min(workers, max(len(directions), 1))

	results := make([]*TaylorResult, len(directions))
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range directions {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			obj, err := factory()
			if err != nil {
				return fmt.Errorf("sweep: build graph: %w", err)
			}
			p := NewProblem(obj, 1)
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				r, err := TaylorTest(p, x, directions[i], eps)
				if err != nil {
					return fmt.Errorf("sweep: direction %d: %w", i, err)
				}
				results[i] = r
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
