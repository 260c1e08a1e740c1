package optim_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/coilopt/coilopt/internal/optim"
	"github.com/coilopt/coilopt/internal/optimizable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// rosenbrock is (1−x)² + 100(y−x²)² over two local dofs.
type rosenbrock struct {
	*optimizable.Optimizable

	wrongGrad bool
}

func newRosenbrock(x, y float64) *rosenbrock {
	return &rosenbrock{Optimizable: optimizable.New("Rosenbrock", []string{"x", "y"}, []float64{x, y})}
}

func (r *rosenbrock) J() (float64, error) {
	v := r.FullX()
	a, b := 1-v[0], v[1]-v[0]*v[0]
	return a*a + 100*b*b, nil
}

func (r *rosenbrock) DJ() (optimizable.Derivative, error) {
	v := r.FullX()
	b := v[1] - v[0]*v[0]
	g := []float64{-2*(1-v[0]) - 400*v[0]*b, 200 * b}
	if r.wrongGrad {
		g[0] *= 1.01
	}
	return optimizable.Of(r, g), nil
}

// bowl is ½ Σ (x_i − c_i)².
type bowl struct {
	*optimizable.Optimizable

	c []float64
}

func newBowl(x0, c []float64) *bowl {
	names := make([]string, len(x0))
	for i := range names {
		names[i] = string(rune('a' + i))
	}
	return &bowl{Optimizable: optimizable.New("Bowl", names, x0), c: c}
}

func (b *bowl) J() (float64, error) {
	sum := 0.0
	for i, x := range b.FullX() {
		sum += 0.5 * (x - b.c[i]) * (x - b.c[i])
	}
	return sum, nil
}

func (b *bowl) DJ() (optimizable.Derivative, error) {
	x := b.FullX()
	g := make([]float64, len(x))
	for i := range x {
		g[i] = x[i] - b.c[i]
	}
	return optimizable.Of(b, g), nil
}

// failing returns an error from J once armed.
type failing struct {
	*bowl

	armed bool
}

var errBoom = errors.New("boom")

func (f *failing) J() (float64, error) {
	if f.armed {
		return 0, errBoom
	}
	return f.bowl.J()
}

func TestProblem_EvaluateScales(t *testing.T) {
	r := newRosenbrock(0.5, 0.5)
	p := optim.NewProblem(r, 1e-2)

	assert.Equal(t, 2, p.Dim())
	assert.Equal(t, []float64{0.5, 0.5}, p.X0())

	f, g, err := p.Evaluate([]float64{0, 0})
	require.NoError(t, err)
	// J(0,0) = 1, ∇J(0,0) = (−2, 0).
	assert.InDelta(t, 1e-2, f, 1e-15)
	assert.InDeltaSlice(t, []float64{-2e-2, 0}, g, 1e-15)
	assert.Equal(t, []float64{0, 0}, r.X(), "graph follows the evaluated point")
	assert.Equal(t, 1, p.Evaluations())
}

func TestProblem_DefaultScaleAndMismatch(t *testing.T) {
	p := optim.NewProblem(newRosenbrock(0, 0), 0)
	assert.Equal(t, 1.0, p.Scale())

	_, _, err := p.Evaluate([]float64{1, 2, 3})
	assert.ErrorIs(t, err, optimizable.ErrDimensionMismatch)
}

func TestProblem_RespectsFixedDofs(t *testing.T) {
	r := newRosenbrock(0, 0)
	require.NoError(t, r.Fix("y"))
	p := optim.NewProblem(r, 1)
	require.Equal(t, 1, p.Dim())

	_, g, err := p.Evaluate([]float64{1})
	require.NoError(t, err)
	// ∂J/∂x at (1, 0) = 0 − 400·1·(0 − 1) = 400.
	assert.InDeltaSlice(t, []float64{400}, g, 1e-12)
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	sgd := optim.NewSGD(optim.SGDConfig{LR: 0.1})
	x := []float64{2.0}
	sgd.Step(x, []float64{1.0})

	// Expected: x_new = x_old - lr * grad = 2.0 - 0.1 * 1.0 = 1.9
	assert.InDelta(t, 1.9, x[0], 1e-15)
	assert.Equal(t, 0.1, sgd.GetLR())
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	sgd := optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	x := []float64{1.0}

	// Step 1: v = 1, x = 1 − 0.1 = 0.9
	sgd.Step(x, []float64{1.0})
	assert.InDelta(t, 0.9, x[0], 1e-15)

	// Step 2: v = 0.9 + 1 = 1.9, x = 0.9 − 0.19 = 0.71
	sgd.Step(x, []float64{1.0})
	assert.InDelta(t, 0.71, x[0], 1e-15)

	state := sgd.StateDict()
	assert.InDeltaSlice(t, []float64{1.9}, state["velocity"], 1e-15)

	sgd.Reset()
	assert.Empty(t, sgd.StateDict())
	require.NoError(t, sgd.LoadStateDict(state))
	assert.InDeltaSlice(t, []float64{1.9}, sgd.StateDict()["velocity"], 1e-15)
}

func TestSGD_Defaults(t *testing.T) {
	sgd := optim.NewSGD(optim.SGDConfig{})
	assert.Equal(t, 0.01, sgd.GetLR())
	sgd.SetLR(0.5)
	assert.Equal(t, 0.5, sgd.GetLR())
	assert.Error(t, sgd.LoadStateDict(map[string][]float64{"velocity": {1}}))
}

// TestAdam_FirstStep checks that the first bias-corrected step moves every
// dof by lr against the sign of its gradient.
func TestAdam_FirstStep(t *testing.T) {
	adam := optim.NewAdam(optim.AdamConfig{LR: 0.01})
	x := []float64{1, 1, 1}
	adam.Step(x, []float64{3, -0.5, 1e3})

	assert.InDeltaSlice(t, []float64{0.99, 1.01, 0.99}, x, 1e-8)
	assert.Equal(t, 1, adam.GetTimestep())

	adam.Reset()
	assert.Equal(t, 0, adam.GetTimestep())
}

func TestAdam_Defaults(t *testing.T) {
	adam := optim.NewAdam(optim.AdamConfig{})
	assert.Equal(t, 0.001, adam.GetLR())
	adam.SetLR(0.1)
	assert.Equal(t, 0.1, adam.GetLR())
}

func TestDescent_ConvergesOnBowl(t *testing.T) {
	for name, opt := range map[string]optim.Optimizer{
		"sgd":  optim.NewSGD(optim.SGDConfig{LR: 0.5}),
		"adam": optim.NewAdam(optim.AdamConfig{LR: 0.05}),
	} {
		t.Run(name, func(t *testing.T) {
			b := newBowl([]float64{3, -2, 1}, []float64{1, 1, 1})
			p := optim.NewProblem(b, 1)

			var seen []int
			d := optim.NewDescent(opt, optim.DescentConfig{
				MaxIterations:     5000,
				GradientThreshold: 1e-6,
				Logger:            quiet,
				Observer: optim.ObserverFunc(func(it optim.Iteration) error {
					seen = append(seen, it.Iter)
					return nil
				}),
			})
			res, err := d.Minimize(context.Background(), p, p.X0())
			require.NoError(t, err)

			assert.Equal(t, optimize.GradientThreshold, res.Status)
			assert.InDeltaSlice(t, []float64{1, 1, 1}, res.X, 1e-5)
			assert.Equal(t, res.X, b.X())
			assert.Len(t, seen, res.Iterations+1)
		})
	}
}

func TestDescent_IterationLimitKeepsBest(t *testing.T) {
	b := newBowl([]float64{3}, []float64{0})
	p := optim.NewProblem(b, 1)
	d := optim.NewDescent(optim.NewSGD(optim.SGDConfig{LR: 0.1}), optim.DescentConfig{
		MaxIterations: 3,
		Logger:        quiet,
	})

	res, err := d.Minimize(context.Background(), p, p.X0())
	require.NoError(t, err)
	assert.Equal(t, optimize.IterationLimit, res.Status)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 4, res.Evaluations)
	// x_k = 3·0.9^k
	assert.InDelta(t, 3*math.Pow(0.9, 3), res.X[0], 1e-12)
}

func TestDescent_ObjectiveErrorStops(t *testing.T) {
	f := &failing{bowl: newBowl([]float64{1}, []float64{0}), armed: true}
	p := optim.NewProblem(f, 1)
	d := optim.NewDescent(optim.NewSGD(optim.SGDConfig{}), optim.DescentConfig{Logger: quiet})

	_, err := d.Minimize(context.Background(), p, p.X0())
	assert.ErrorIs(t, err, errBoom)
}

func TestLBFGS_Rosenbrock(t *testing.T) {
	r := newRosenbrock(-1.2, 1)
	p := optim.NewProblem(r, 1)
	var iters int
	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{
		Store:             10,
		GradientThreshold: 1e-8,
		Logger:            quiet,
		Observer: optim.ObserverFunc(func(it optim.Iteration) error {
			iters++
			assert.Positive(t, it.Iter)
			return nil
		}),
	})

	res, err := lbfgs.Minimize(context.Background(), p, p.X0())
	require.NoError(t, err)

	assert.Equal(t, optimize.GradientThreshold, res.Status)
	assert.InDeltaSlice(t, []float64{1, 1}, res.X, 1e-4)
	assert.InDelta(t, 0, res.J, 1e-8)
	assert.Equal(t, res.X, r.X(), "graph left at the reported point")
	assert.Positive(t, iters)
}

func TestLBFGS_SingleStepDecreases(t *testing.T) {
	p := optim.NewProblem(newRosenbrock(-1.2, 1), 1e-4)
	f0, _, err := p.Evaluate(p.X0())
	require.NoError(t, err)

	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{MaxIterations: 1, Logger: quiet})
	res, err := lbfgs.Minimize(context.Background(), p, p.X0())
	require.NoError(t, err)

	assert.Equal(t, optimize.IterationLimit, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Less(t, res.F, f0)
	assert.InDelta(t, res.F/1e-4, res.J, 1e-12)
}

func TestLBFGS_EvaluationsArePerRun(t *testing.T) {
	p := optim.NewProblem(newRosenbrock(-1.2, 1), 1)
	_, _, err := p.Evaluate(p.X0())
	require.NoError(t, err)

	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{MaxIterations: 3, Logger: quiet})
	before := p.Evaluations()
	first, err := lbfgs.Minimize(context.Background(), p, p.X0())
	require.NoError(t, err)
	assert.Positive(t, first.Evaluations)
	assert.Equal(t, p.Evaluations()-before, first.Evaluations)

	before = p.Evaluations()
	second, err := lbfgs.Minimize(context.Background(), p, first.X)
	require.NoError(t, err)
	assert.Equal(t, p.Evaluations()-before, second.Evaluations)

	stationary := optim.NewProblem(newRosenbrock(1, 1), 1)
	for range 2 {
		_, _, err = stationary.Evaluate(stationary.X0())
		require.NoError(t, err)
	}
	res, err := lbfgs.Minimize(context.Background(), stationary, stationary.X0())
	require.NoError(t, err)
	assert.Equal(t, optimize.GradientThreshold, res.Status)
	assert.Equal(t, 1, res.Evaluations)
}

func TestLBFGS_StationaryStart(t *testing.T) {
	p := optim.NewProblem(newRosenbrock(1, 1), 1)
	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{Logger: quiet})

	res, err := lbfgs.Minimize(context.Background(), p, p.X0())
	require.NoError(t, err)
	assert.Equal(t, optimize.GradientThreshold, res.Status)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 1, res.Evaluations)
	assert.Equal(t, []float64{1, 1}, res.X)
}

func TestLBFGS_ObserverAborts(t *testing.T) {
	errStop := errors.New("stop")
	p := optim.NewProblem(newRosenbrock(-1.2, 1), 1)
	lbfgs := optim.NewLBFGS(optim.LBFGSConfig{
		Logger: quiet,
		Observer: optim.ObserverFunc(func(it optim.Iteration) error {
			if it.Iter == 2 {
				return errStop
			}
			return nil
		}),
	})

	res, err := lbfgs.Minimize(context.Background(), p, p.X0())
	require.ErrorIs(t, err, errStop)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Iterations)
}

func TestLBFGS_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := optim.NewProblem(newRosenbrock(-1.2, 1), 1)

	_, err := optim.NewLBFGS(optim.LBFGSConfig{Logger: quiet}).Minimize(ctx, p, p.X0())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLBFGS_InitialError(t *testing.T) {
	f := &failing{bowl: newBowl([]float64{1}, []float64{0}), armed: true}
	p := optim.NewProblem(f, 1)

	_, err := optim.NewLBFGS(optim.LBFGSConfig{Logger: quiet}).Minimize(context.Background(), p, p.X0())
	assert.ErrorIs(t, err, errBoom)

	_, err = optim.NewLBFGS(optim.LBFGSConfig{Logger: quiet}).Minimize(context.Background(), p, []float64{1, 2})
	assert.ErrorIs(t, err, optimizable.ErrDimensionMismatch)
}

func TestMinimizers_ShareInterface(t *testing.T) {
	var _ optim.Minimizer = optim.NewLBFGS(optim.LBFGSConfig{})
	var _ optim.Minimizer = optim.NewDescent(optim.NewAdam(optim.AdamConfig{}), optim.DescentConfig{})
	var _ optim.Optimizer = optim.NewSGD(optim.SGDConfig{})
}
