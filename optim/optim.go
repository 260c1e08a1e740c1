// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"context"

	"github.com/coilopt/coilopt/internal/optim"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// ErrNonFinite is returned when no finite objective value was seen.
var ErrNonFinite = optim.ErrNonFinite

// Minimizer minimizes a Problem from a starting point.
type Minimizer = optim.Minimizer

// Optimizer is a first-order stepper over a flat dof vector.
type Optimizer = optim.Optimizer

// Config represents the base configuration for optimizers.
type Config = optim.Config

// Result is the outcome of a minimization.
type Result = optim.Result

// Iteration is one progress record.
type Iteration = optim.Iteration

// Observer receives progress records. A non-nil error aborts the run.
type Observer = optim.Observer

// ObserverFunc adapts a function to Observer.
type ObserverFunc = optim.ObserverFunc

// Problem is the flat view of an objective graph.
type Problem = optim.Problem

// NewProblem wraps objective. The minimizer sees scale·J; 0 means 1.
func NewProblem(objective optimizable.Objective, scale float64) *Problem {
	return optim.NewProblem(objective, scale)
}

// L-BFGS

// LBFGS is the gonum-backed limited-memory BFGS minimizer.
type LBFGS = optim.LBFGS

// LBFGSConfig contains configuration for LBFGS.
type LBFGSConfig = optim.LBFGSConfig

// NewLBFGS creates an L-BFGS minimizer.
//
// Example:
//
//	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{
//	    MaxIterations: 400,
//	    Store:         300,
//	})
func NewLBFGS(config LBFGSConfig) *LBFGS {
	return optim.NewLBFGS(config)
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	adam := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	})
//	minimizer := optim.NewDescent(adam, optim.DescentConfig{MaxIterations: 1000})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// Descent runs an Optimizer as a Minimizer.
type Descent = optim.Descent

// DescentConfig contains configuration for Descent.
type DescentConfig = optim.DescentConfig

// NewDescent wraps opt in a minimization loop.
func NewDescent(opt Optimizer, config DescentConfig) *Descent {
	return optim.NewDescent(opt, config)
}

// Gradient checks

// TaylorResult holds the errors of a Taylor test.
type TaylorResult = optim.TaylorResult

// Factory builds a fresh, isolated objective graph.
type Factory = optim.Factory

// DefaultTaylorEps returns the default step sequence 1e-2 … 1e-7.
func DefaultTaylorEps() []float64 {
	return optim.DefaultTaylorEps()
}

// TaylorTest compares the gradient at x along h with centered differences.
func TaylorTest(p *Problem, x, h, eps []float64) (*TaylorResult, error) {
	return optim.TaylorTest(p, x, h, eps)
}

// GradientSweep runs TaylorTest along many directions concurrently.
func GradientSweep(ctx context.Context, factory Factory, x []float64, directions [][]float64, eps []float64, workers int) ([]*TaylorResult, error) {
	return optim.GradientSweep(ctx, factory, x, directions, eps, workers)
}
