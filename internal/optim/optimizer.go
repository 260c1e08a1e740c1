// Package optim drives gradient-based minimization of a graph objective.
//
// This package provides:
//   - Problem: the flat objective(x) -> (J, grad) surface over a graph root
//   - Minimizer interface: common surface for all minimizers
//   - LBFGS: limited-memory quasi-Newton method backed by gonum/optimize
//   - Adam, SGD: first-order steppers run by a Descent loop
//   - TaylorTest, GradientSweep: finite-difference gradient checks
//
// Example usage:
//
//	problem := optim.NewProblem(objective, 1e-4)
//	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{
//	    MaxIterations: 400,
//	    Store:         300,
//	})
//
//	result, err := lbfgs.Minimize(ctx, problem, problem.X0())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.J, result.Status)
package optim

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// Minimizer is the base interface for all minimization algorithms.
//
// Minimize starts at x0 (not modified) and returns the best point found.
// The problem's graph is left at the returned point. Cancellation is checked
// between objective evaluations, never inside one.
type Minimizer interface {
	Minimize(ctx context.Context, p *Problem, x0 []float64) (*Result, error)
}

// Optimizer is a first-order update rule over a flat parameter vector.
//
// All optimizers must implement:
//   - Step: Apply one update to x in place given the gradient at x
//   - Reset: Clear accumulated state (moments, velocities, timestep)
//   - GetLR: Get current learning rate (for monitoring/scheduling)
type Optimizer interface {
	// Step applies one update to x in place.
	Step(x, grad []float64)

	// Reset clears all accumulated optimizer state.
	Reset()

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// Result is the outcome of a minimization.
type Result struct {
	X           []float64       // Final dofs
	F           float64         // Scaled objective value seen by the minimizer
	J           float64         // Unscaled objective value
	Gradient    []float64       // Scaled gradient at X
	Iterations  int             // Major iterations
	Evaluations int             // Objective evaluations
	Status      optimize.Status // Termination reason
	Runtime     time.Duration
}

// Iteration is one progress record handed to an Observer.
type Iteration struct {
	Iter        int
	F           float64
	GradNorm    float64
	Evaluations int
	Elapsed     time.Duration
	X           []float64
}

// Observer receives progress records. A non-nil error aborts the run.
type Observer interface {
	Observe(it Iteration) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(it Iteration) error

// Observe implements Observer.
func (f ObserverFunc) Observe(it Iteration) error { return f(it) }

// Problem exposes an objective as a pure function of its flat dof vector.
//
// Evaluate writes x into the graph and returns scale·J and scale·∇J, with the
// gradient aligned with the root's X() ordering.
type Problem struct {
	objective optimizable.Objective
	scale     float64
	evals     int
}

// NewProblem wraps objective. A zero scale means 1.
func NewProblem(objective optimizable.Objective, scale float64) *Problem {
	if scale == 0 {
		scale = 1
	}
	return &Problem{objective: objective, scale: scale}
}

// Objective returns the wrapped objective.
func (p *Problem) Objective() optimizable.Objective { return p.objective }

// Scale returns the factor applied to J and its gradient.
func (p *Problem) Scale() float64 { return p.scale }

// Dim returns the number of free dofs.
func (p *Problem) Dim() int { return p.objective.Opt().DofSize() }

// X0 returns the current dofs of the graph.
func (p *Problem) X0() []float64 { return p.objective.Opt().X() }

// Evaluations returns the number of Evaluate calls so far.
func (p *Problem) Evaluations() int { return p.evals }

// Evaluate returns the scaled objective and gradient at x.
func (p *Problem) Evaluate(x []float64) (float64, []float64, error) {
	p.evals++
	if err := p.objective.Opt().SetX(x); err != nil {
		return 0, nil, fmt.Errorf("evaluate: %w", err)
	}
	j, err := p.objective.J()
	if err != nil {
		return 0, nil, fmt.Errorf("evaluate J: %w", err)
	}
	dj, err := p.objective.DJ()
	if err != nil {
		return 0, nil, fmt.Errorf("evaluate dJ: %w", err)
	}
	grad := dj.Flatten(p.objective)
	for i := range grad {
		grad[i] *= p.scale
	}
	return p.scale * j, grad, nil
}

// Value returns the scaled objective at x without computing the gradient.
func (p *Problem) Value(x []float64) (float64, error) {
	p.evals++
	if err := p.objective.Opt().SetX(x); err != nil {
		return 0, fmt.Errorf("evaluate: %w", err)
	}
	j, err := p.objective.J()
	if err != nil {
		return 0, fmt.Errorf("evaluate J: %w", err)
	}
	return p.scale * j, nil
}
