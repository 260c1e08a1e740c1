package geo_test

import (
	"testing"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
	"github.com/coilopt/coilopt/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTorsion_PlanarCurveIsZero(t *testing.T) {
	c, err := geo.NewCurveXYZFourier(geo.Quadpoints(20), 3)
	require.NoError(t, err)
	require.NoError(t, c.SetCoefficient(0, 1, true, 1))
	require.NoError(t, c.SetCoefficient(1, 1, false, 1.5))
	require.NoError(t, c.SetCoefficient(0, 2, false, 0.05))

	for _, tau := range geo.Torsion(c) {
		assert.InDelta(t, 0, tau, 1e-12)
	}
}

func TestFrenetFrame_Orthonormal(t *testing.T) {
	c := perturbedCircle(t, newRNG(), 16, 3)
	tt, n, b := geo.FrenetFrame(c)
	for k := range tt {
		assert.InDelta(t, 1, tt[k].Norm(), 1e-12)
		assert.InDelta(t, 1, n[k].Norm(), 1e-12)
		assert.InDelta(t, 0, tt[k].Dot(n[k]), 1e-12)
		assert.InDelta(t, 0, tt[k].Dot(b[k]), 1e-12)
		assert.InDelta(t, 0, n[k].Dot(b[k]), 1e-12)
	}
}

func TestKappaVJP(t *testing.T) {
	rng := newRNG()
	c := perturbedCircle(t, rng, 16, 3)
	kappa := func() []float64 { return geo.Kappa(c) }
	vjp := func(v []float64) optimizable.Derivative { return geo.KappaVJP(c, v) }

	checkVJP(t, rng, c, kappa, vjp, 1e-6)
}

func TestTorsionVJP(t *testing.T) {
	rng := newRNG()
	c := perturbedCircle(t, rng, 16, 3)
	torsion := func() []float64 { return geo.Torsion(c) }
	vjp := func(v []float64) optimizable.Derivative { return geo.TorsionVJP(c, v) }

	checkVJP(t, rng, c, torsion, vjp, 1e-5)
}

func TestKappaPartials_StraightSegment(t *testing.T) {
	da, db := geo.KappaPartials(geo.Vec3{1, 0, 0}, geo.Vec3{2, 0, 0})
	assert.Equal(t, geo.Vec3{}, da)
	assert.Equal(t, geo.Vec3{}, db)
}

func TestCreateEquallySpacedCurves(t *testing.T) {
	curves, err := geo.CreateEquallySpacedCurves(2, 2, true, 1.0, 0.5, 5, 30)
	require.NoError(t, err)
	require.Len(t, curves, 2)

	for i, c := range curves {
		assert.Equal(t, 3*11, c.DofSize())
		g := c.Gamma()
		// Centre on the major circle, radius R1.
		var centre geo.Vec3
		for _, p := range g {
			centre = centre.Add(p)
		}
		centre = centre.Scale(1 / float64(len(g)))
		assert.InDelta(t, 1.0, centre.Norm(), 1e-12, "curve %d", i)
		for _, p := range g {
			assert.InDelta(t, 0.5, p.Sub(centre).Norm(), 1e-12)
		}
	}

	_, err = geo.CreateEquallySpacedCurves(0, 2, true, 1, 0.5, 5, 30)
	assert.ErrorIs(t, err, geo.ErrInvalidCurve)
}

func TestFrenet_SplitLoopsMatchSequential(t *testing.T) {
	c := perturbedCircle(t, newRNG(), 512, 4)
	v := make([]float64, 512)
	for k := range v {
		v[k] = float64(k%7) - 3
	}

	saved := geo.SampleLoops
	t.Cleanup(func() { geo.SampleLoops = saved })

	geo.SampleLoops = parallel.Sequential()
	kappa, tau := geo.Kappa(c), geo.Torsion(c)
	_, n, _ := geo.FrenetFrame(c)
	grad := geo.KappaVJP(c, v).Flatten(c)

	geo.SampleLoops = parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}
	assert.Equal(t, kappa, geo.Kappa(c))
	assert.Equal(t, tau, geo.Torsion(c))
	_, n2, _ := geo.FrenetFrame(c)
	assert.Equal(t, n, n2)
	assert.Equal(t, grad, geo.KappaVJP(c, v).Flatten(c))
}
