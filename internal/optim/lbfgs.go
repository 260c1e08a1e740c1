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

// LBFGS minimizes with the limited-memory BFGS method of gonum/optimize.
//
// The objective and gradient are computed together by Problem.Evaluate and
// cached per point, since gonum asks for them separately at the same x.
//
// Example:
//
//	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{
//	    MaxIterations: 400,
//	    Store:         300,
//	    Logger:        slog.Default(),
//	})
//	result, err := lbfgs.Minimize(ctx, problem, problem.X0())
type LBFGS struct {
	maxIter   int
	store     int
	ftol      float64
	gtol      float64
	stallIter int
	logger    *slog.Logger
	observer  Observer
}

// LBFGSConfig holds configuration for the L-BFGS minimizer.
type LBFGSConfig struct {
	MaxIterations     int          // Major iteration limit (default: 400)
	Store             int          // Correction pairs kept, maxcor (default: 300)
	FunctionTolerance float64      // Relative decrease counted as progress (default: 1e-9)
	GradientThreshold float64      // Infinity-norm stationarity threshold (default: 1e-12)
	StallIterations   int          // Iterations without progress before stopping (default: 20)
	Logger            *slog.Logger // Per-iteration log sink (default: slog.Default())
	Observer          Observer     // Optional progress receiver
}

// NewLBFGS creates a new L-BFGS minimizer.
//
// Default hyperparameters:
//   - MaxIterations: 400
//   - Store: 300
//   - FunctionTolerance: 1e-9
//   - GradientThreshold: 1e-12
//   - StallIterations: 20
func NewLBFGS(config LBFGSConfig) *LBFGS {
	// Set defaults
	if config.MaxIterations == 0 {
		config.MaxIterations = 400
	}
	if config.Store == 0 {
		config.Store = 300
	}
	if config.FunctionTolerance == 0 {
		config.FunctionTolerance = 1e-9
	}
	if config.GradientThreshold == 0 {
		config.GradientThreshold = 1e-12
	}
	if config.StallIterations == 0 {
		config.StallIterations = 20
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &LBFGS{
		maxIter:   config.MaxIterations,
		store:     config.Store,
		ftol:      config.FunctionTolerance,
		gtol:      config.GradientThreshold,
		stallIter: config.StallIterations,
		logger:    config.Logger,
		observer:  config.Observer,
	}
}

var nan = math.NaN()

// evalCache memoizes the last Problem.Evaluate call.
type evalCache struct {
	p    *Problem
	x    []float64
	f    float64
	grad []float64
	err  error
}

func (c *evalCache) at(x []float64) {
	if c.x != nil && floats.Equal(c.x, x) {
		return
	}
	c.x = append(c.x[:0], x...)
	c.f, c.grad, c.err = c.p.Evaluate(x)
	if c.err != nil {
		c.f = nan
		c.grad = nil
	}
}

// Minimize implements Minimizer.
//
// A starting point whose gradient infinity norm is within the gradient
// threshold returns immediately with status GradientThreshold and zero
// iterations.
func (l *LBFGS) Minimize(ctx context.Context, p *Problem, x0 []float64) (*Result, error) {
	if len(x0) != p.Dim() {
		return nil, fmt.Errorf("lbfgs: x0 has %d entries for %d dofs: %w", len(x0), p.Dim(), optimizable.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lbfgs: %w", err)
	}
	start := time.Now()
	evals0 := p.Evaluations()
	cache := &evalCache{p: p}
	cache.at(x0)
	if cache.err != nil {
		return nil, fmt.Errorf("lbfgs: initial point: %w", cache.err)
	}
	if floats.Norm(cache.grad, math.Inf(1)) <= l.gtol {
		l.logger.Info("lbfgs stationary start", slog.Float64("J", cache.f))
		return &Result{
			X:           append([]float64(nil), x0...),
			F:           cache.f,
			J:           cache.f / p.Scale(),
			Gradient:    append([]float64(nil), cache.grad...),
			Evaluations: p.Evaluations() - evals0,
			Status:      optimize.GradientThreshold,
			Runtime:     time.Since(start),
		}, nil
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			cache.at(x)
			return cache.f
		},
		Grad: func(grad, x []float64) {
			cache.at(x)
			if cache.err != nil {
				for i := range grad {
					grad[i] = nan
				}
				return
			}
			copy(grad, cache.grad)
		},
		Status: func() (optimize.Status, error) {
			if cache.err != nil {
				return optimize.Failure, cache.err
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		InitValues: &optimize.Location{
			F:        cache.f,
			Gradient: append([]float64(nil), cache.grad...),
		},
		GradientThreshold: l.gtol,
		MajorIterations:   l.maxIter,
		Converger: &optimize.FunctionConverge{
			Relative:   l.ftol,
			Iterations: l.stallIter,
		},
		Recorder: &recorder{
			logger:   l.logger,
			observer: l.observer,
			start:    start,
		},
	}
	method := &optimize.LBFGS{Store: l.store}

	res, err := optimize.Minimize(problem, x0, settings, method)
	if res == nil {
		return nil, fmt.Errorf("lbfgs: %w", err)
	}
	out := &Result{
		X:           append([]float64(nil), res.X...),
		F:           res.F,
		J:           res.F / p.Scale(),
		Gradient:    append([]float64(nil), res.Gradient...),
		Iterations:  res.MajorIterations,
		Evaluations: p.Evaluations() - evals0,
		Status:      res.Status,
		Runtime:     time.Since(start),
	}
	// Leave the graph at the reported point, not the last line-search trial point.
	if setErr := p.Objective().Opt().SetX(out.X); setErr != nil && err == nil {
		err = setErr
	}
	if err != nil {
		return out, fmt.Errorf("lbfgs: %w", err)
	}
	return out, nil
}

// recorder adapts gonum's Recorder to slog and an Observer.
type recorder struct {
	logger   *slog.Logger
	observer Observer
	start    time.Time
}

func (r *recorder) Init() error { return nil }

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	it := Iteration{
		Iter:        stats.MajorIterations,
		F:           loc.F,
		GradNorm:    floats.Norm(loc.Gradient, 2),
		Evaluations: stats.FuncEvaluations,
		Elapsed:     time.Since(r.start),
		X:           append([]float64(nil), loc.X...),
	}
	logIteration(r.logger, "lbfgs", it)
	if r.observer == nil {
		return nil
	}
	return r.observer.Observe(it)
}

func logIteration(logger *slog.Logger, method string, it Iteration) {
	logger.Info(method+" iteration",
		slog.Int("iter", it.Iter),
		slog.Float64("J", it.F),
		slog.Float64("grad_norm", it.GradNorm),
		slog.Int("evals", it.Evaluations),
	)
}
