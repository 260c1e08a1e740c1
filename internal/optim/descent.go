package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// Descent runs a first-order Optimizer as a Minimizer: evaluate, check
// stationarity, step, repeat.
type Descent struct {
	opt      Optimizer
	maxIter  int
	gtol     float64
	logger   *slog.Logger
	observer Observer
}

// DescentConfig holds configuration for the Descent loop.
type DescentConfig struct {
	MaxIterations     int          // Step limit (default: 1000)
	GradientThreshold float64      // Infinity-norm stationarity threshold (default: 1e-12)
	Logger            *slog.Logger // Per-iteration log sink (default: slog.Default())
	Observer          Observer     // Optional progress receiver
}

// NewDescent wraps opt in a minimization loop.
func NewDescent(opt Optimizer, config DescentConfig) *Descent {
	// Set defaults
	if config.MaxIterations == 0 {
		config.MaxIterations = 1000
	}
	if config.GradientThreshold == 0 {
		config.GradientThreshold = 1e-12
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Descent{
		opt:      opt,
		maxIter:  config.MaxIterations,
		gtol:     config.GradientThreshold,
		logger:   config.Logger,
		observer: config.Observer,
	}
}

// Optimizer returns the wrapped update rule.
func (d *Descent) Optimizer() Optimizer { return d.opt }

// Minimize implements Minimizer. The returned point is the best one
// evaluated, which for non-monotone rules like Adam need not be the last.
func (d *Descent) Minimize(ctx context.Context, p *Problem, x0 []float64) (*Result, error) {
	if len(x0) != p.Dim() {
		return nil, fmt.Errorf("descent: x0 has %d entries for %d dofs: %w", len(x0), p.Dim(), optimizable.ErrDimensionMismatch)
	}
	start := time.Now()
	d.opt.Reset()

	x := append([]float64(nil), x0...)
	best := &Result{F: math.Inf(1), Status: optimize.IterationLimit}
	evals := 0
	for iter := 0; ; iter++ {
		if err := ctx.Err(); err != nil {
			best.Status = optimize.Failure
			return d.finish(p, best, evals, start, err)
		}
		f, grad, err := p.Evaluate(x)
		evals++
		if err != nil {
			best.Status = optimize.Failure
			return d.finish(p, best, evals, start, err)
		}
		if f < best.F {
			best.X = append(best.X[:0], x...)
			best.F = f
			best.Gradient = append(best.Gradient[:0], grad...)
		}
		best.Iterations = iter

		it := Iteration{
			Iter:        iter,
			F:           f,
			GradNorm:    floats.Norm(grad, 2),
			Evaluations: evals,
			Elapsed:     time.Since(start),
			X:           append([]float64(nil), x...),
		}
		logIteration(d.logger, "descent", it)
		if d.observer != nil {
			if err := d.observer.Observe(it); err != nil {
				best.Status = optimize.Failure
				return d.finish(p, best, evals, start, err)
			}
		}

		if floats.Norm(grad, math.Inf(1)) <= d.gtol {
			best.Status = optimize.GradientThreshold
			return d.finish(p, best, evals, start, nil)
		}
		if iter == d.maxIter {
			return d.finish(p, best, evals, start, nil)
		}
		d.opt.Step(x, grad)
	}
}

func (d *Descent) finish(p *Problem, r *Result, evals int, start time.Time, err error) (*Result, error) {
	r.J = r.F / p.Scale()
	r.Evaluations = evals
	r.Runtime = time.Since(start)
	if r.X == nil {
		if err == nil {
			err = ErrNonFinite
		}
		return nil, fmt.Errorf("descent: %w", err)
	}
	if setErr := p.Objective().Opt().SetX(r.X); setErr != nil && err == nil {
		err = setErr
	}
	if err != nil {
		return r, fmt.Errorf("descent: %w", err)
	}
	return r, nil
}
