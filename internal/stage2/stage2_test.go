package stage2_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	"github.com/coilopt/coilopt/internal/config"
	"github.com/coilopt/coilopt/internal/optim"
	"github.com/coilopt/coilopt/internal/serialization"
	"github.com/coilopt/coilopt/internal/stage2"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// small is the default problem at a resolution cheap enough for tests.
func small() config.Config {
	cfg := config.Default()
	cfg.Coils.Order = 3
	cfg.Coils.Quadpoints = 24
	cfg.Surface.Nphi = 8
	cfg.Surface.Ntheta = 8
	return cfg
}

func TestBuildTwoCoilsToEight(t *testing.T) {
	s, err := stage2.Build(config.Default())
	require.NoError(t, err)

	assert.Len(t, s.BaseCurves, 2)
	assert.Len(t, s.Coils, 8)
	assert.Equal(t, 16*32, len(s.Surface.Gamma()))
	assert.False(t, s.Currents[0].Dofs().IsFree(0))
	assert.True(t, s.Currents[1].Dofs().IsFree(0))
	for _, c := range s.Coils {
		assert.InDelta(t, 6.5e5, math.Abs(c.Current().Value()), 1e-6)
	}

	// Two curves of order 5 and one free current.
	assert.Equal(t, 2*3*(2*5+1)+1, s.Objective.DofSize())

	j, err := s.Objective.J()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(j) || math.IsInf(j, 0))
	assert.GreaterOrEqual(t, j, 0.0)

	flux, err := s.Flux.J()
	require.NoError(t, err)
	assert.Equal(t, flux, j)
}

func TestOneLBFGSStepDecreases(t *testing.T) {
	cfg := config.Default()
	s, err := stage2.Build(cfg)
	require.NoError(t, err)

	p := optim.NewProblem(s.Objective, cfg.Optimizer.Scale)
	j0, err := s.Objective.J()
	require.NoError(t, err)

	res, err := optim.NewLBFGS(optim.LBFGSConfig{MaxIterations: 1, Logger: quiet()}).
		Minimize(context.Background(), p, p.X0())
	require.NoError(t, err)

	if res.Status == optimize.GradientThreshold {
		assert.Zero(t, res.Iterations)
		return
	}
	assert.Less(t, res.J, j0)
	j1, err := s.Objective.J()
	require.NoError(t, err)
	assert.InDelta(t, res.J, j1, 1e-12*math.Abs(j0))
}

func TestPenaltiesAndTaylor(t *testing.T) {
	cfg := small()
	cfg.Penalties.LengthWeight = 1e-3
	cfg.Penalties.CurvatureWeight = 1e-4
	cfg.Penalties.CurvatureThreshold = 0
	cfg.Penalties.MSCWeight = 1e-4
	cfg.Penalties.MSCThreshold = 0

	s, err := stage2.Build(cfg)
	require.NoError(t, err)
	// Flux, two length penalties, two curvature and two msc terms.
	assert.Len(t, s.Objective.Terms(), 7)

	// The length penalties are zero at the initial lengths.
	x := s.Objective.X()
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // G404: reproducible test data
	for i := range x {
		x[i] += 0.01 * rng.NormFloat64()
	}
	p := optim.NewProblem(s.Objective, 1)
	h := make([]float64, len(x))
	for i := range h {
		h[i] = rng.NormFloat64()
	}
	res, err := optim.TaylorTest(p, x, h, nil)
	require.NoError(t, err)
	assert.True(t, res.SecondOrder(3, 1e-11), res.String())
}

func TestLengthTargetIsOneTerm(t *testing.T) {
	cfg := small()
	cfg.Penalties.LengthWeight = 1
	cfg.Penalties.LengthTarget = 100
	cfg.Penalties.DistanceWeight = 1

	s, err := stage2.Build(cfg)
	require.NoError(t, err)
	assert.Len(t, s.Objective.Terms(), 3)

	// Both penalties are inactive: total length 2π is below 100 and the
	// coils are further apart than 0.1.
	j, err := s.Objective.J()
	require.NoError(t, err)
	flux, err := s.Flux.J()
	require.NoError(t, err)
	assert.InDelta(t, flux, j, 1e-15)
}

func TestTotalCurrentConstraint(t *testing.T) {
	cfg := small()
	cfg.Coils.NCoils = 3
	cfg.Currents.Total = 3e6

	s, err := stage2.Build(cfg)
	require.NoError(t, err)
	require.Len(t, s.Currents, 2)
	require.Len(t, s.BaseCurrents, 3)
	assert.True(t, s.Currents[0].Dofs().IsFree(0))

	require.NoError(t, s.Currents[0].Set("I", 20))
	sum := 0.0
	for _, c := range s.BaseCurrents {
		sum += c.Value()
	}
	assert.InDelta(t, 3e6, sum, 1e-6)
	assert.InDelta(t, 3e6-2e6-6.5e5, s.BaseCurrents[2].Value(), 1e-6)
}

func TestMultifilament(t *testing.T) {
	cfg := small()
	cfg.Filaments.Enabled = true

	s, err := stage2.Build(cfg)
	require.NoError(t, err)
	// Two base coils, four filaments each, four symmetry images.
	assert.Len(t, s.Coils, 2*4*4)
	assert.Len(t, s.Rotations, 2)
	for _, c := range s.Coils {
		assert.InDelta(t, 6.5e5/4, math.Abs(c.Current().Value()), 1e-6)
	}

	r, err := s.Report()
	require.NoError(t, err)
	assert.Equal(t, 32, r.NumCoils)
	assert.Greater(t, r.MaxBn, 0.0)
}

func TestBuildsAreIsolated(t *testing.T) {
	a, err := stage2.Build(small())
	require.NoError(t, err)
	b, err := stage2.Build(small())
	require.NoError(t, err)

	jb, err := b.Objective.J()
	require.NoError(t, err)

	x := a.Objective.X()
	x[0] += 0.1
	require.NoError(t, a.Objective.SetX(x))
	ja, err := a.Objective.J()
	require.NoError(t, err)
	assert.NotEqual(t, ja, jb)

	again, err := b.Objective.J()
	require.NoError(t, err)
	assert.Equal(t, jb, again)
}

func TestSnapshotMovesStateBetweenBuilds(t *testing.T) {
	a, err := stage2.Build(small())
	require.NoError(t, err)
	x := a.Objective.X()
	for i := range x {
		x[i] *= 1.01
	}
	require.NoError(t, a.Objective.SetX(x))
	ja, err := a.Objective.J()
	require.NoError(t, err)

	b, err := stage2.Build(small())
	require.NoError(t, err)
	require.NoError(t, serialization.Capture(a.Objective).Apply(b.Objective))
	jb, err := b.Objective.J()
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestFactory(t *testing.T) {
	factory := stage2.NewFactory(small())
	obj, err := factory()
	require.NoError(t, err)
	assert.Positive(t, obj.Opt().DofSize())

	bad := small()
	bad.Coils.NCoils = 0
	_, err = stage2.NewFactory(bad)()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestReport(t *testing.T) {
	s, err := stage2.Build(small())
	require.NoError(t, err)
	r, err := s.Report()
	require.NoError(t, err)

	assert.Equal(t, 8, r.NumCoils)
	assert.Len(t, r.Lengths, 2)
	assert.InDelta(t, math.Pi, r.Lengths[0], 1e-9)
	assert.Equal(t, []float64{6.5e5, 6.5e5}, r.CurrentsA)
	assert.GreaterOrEqual(t, r.MaxBn, r.MeanBn)
	assert.Positive(t, r.MinDist)
}
