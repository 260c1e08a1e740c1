package geo_test

import (
	"math"
	"testing"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilamentRotation_Alpha(t *testing.T) {
	q := geo.Quadpoints(10)
	r, err := geo.NewFilamentRotation(q, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "s1", "c1", "s2", "c2"}, r.Dofs().Names())

	require.NoError(t, r.SetLocalX([]float64{0.1, 0.2, -0.3, 0, 0.4}))
	alpha := r.Alpha()
	alphadash := r.AlphaDash()
	for k, phi := range q {
		w := 2 * math.Pi * phi
		want := 0.1 + 0.2*math.Sin(w) - 0.3*math.Cos(w) + 0.4*math.Cos(2*w)
		wantDash := 2 * math.Pi * (0.2*math.Cos(w) + 0.3*math.Sin(w) - 2*0.4*math.Sin(2*w))
		assert.InDelta(t, want, alpha[k], 1e-14)
		assert.InDelta(t, wantDash, alphadash[k], 1e-12)
	}
}

func TestFilamentRotation_VJPs(t *testing.T) {
	rng := newRNG()
	r, err := geo.NewFilamentRotation(geo.Quadpoints(9), 2)
	require.NoError(t, err)
	require.NoError(t, r.SetLocalX(randomSlice(rng, 5)))

	checkVJP(t, rng, r, r.Alpha, r.DAlphaByDCoeffVJP, 1e-8)
	checkVJP(t, rng, r, r.AlphaDash, r.DAlphaDashByDCoeffVJP, 1e-8)
}

func TestZeroRotation(t *testing.T) {
	z := geo.NewZeroRotation(geo.Quadpoints(4))
	assert.Equal(t, make([]float64, 4), z.Alpha())
	assert.Equal(t, 0, z.DAlphaByDCoeffVJP(make([]float64, 4)).Len())
	assert.Equal(t, 0, z.DofSize())
}

func TestCurveShiftedRotated_ZeroShiftIsBase(t *testing.T) {
	base := perturbedCircle(t, newRNG(), 16, 2)
	f := geo.NewCurveShiftedRotated(base, 0, 0, nil)

	g, gb := f.Gamma(), base.Gamma()
	gd, gdb := f.GammaDash(), base.GammaDash()
	for k := range g {
		assert.InDeltaSlice(t, gb[k][:], g[k][:], 1e-14)
		assert.InDeltaSlice(t, gdb[k][:], gd[k][:], 1e-12)
	}
	assert.Len(t, f.Opt().Parents(), 1)
}

func TestCurveShiftedRotated_OffsetIsOrthogonal(t *testing.T) {
	rng := newRNG()
	base := perturbedCircle(t, rng, 16, 2)
	rot, err := geo.NewFilamentRotation(base.Quadpoints(), 1)
	require.NoError(t, err)
	require.NoError(t, rot.SetLocalX([]float64{0.3, 0.1, -0.2}))

	f := geo.NewCurveShiftedRotated(base, 0.03, -0.04, rot)
	g, gb, gdb := f.Gamma(), base.Gamma(), base.GammaDash()
	for k := range g {
		d := g[k].Sub(gb[k])
		assert.InDelta(t, 0.05, d.Norm(), 1e-12)
		assert.InDelta(t, 0, d.Dot(gdb[k]), 1e-12)
	}
}

// TestCurveShiftedRotated_TangentMatchesParameterDerivative samples the same
// filament at parameters shifted by ±δ and compares the centered difference
// with GammaDash. The centroid of a trigonometric polynomial is exact on any
// equally spaced grid, so the shifted samples see the same frame.
func TestCurveShiftedRotated_TangentMatchesParameterDerivative(t *testing.T) {
	rng := newRNG()
	const nquad, order = 16, 2
	base := perturbedCircle(t, rng, nquad, order)
	rotDofs := []float64{0.2, 0.3, -0.1}

	build := func(shift float64) *geo.CurveShiftedRotated {
		q := geo.Quadpoints(nquad)
		for k := range q {
			q[k] += shift
		}
		c, err := geo.NewCurveXYZFourier(q, order)
		require.NoError(t, err)
		require.NoError(t, c.SetFullX(base.FullX()))
		r, err := geo.NewFilamentRotation(q, 1)
		require.NoError(t, err)
		require.NoError(t, r.SetLocalX(rotDofs))
		return geo.NewCurveShiftedRotated(c, 0.05, 0.02, r)
	}

	const delta = 1e-6
	plus, minus, mid := build(delta).Gamma(), build(-delta).Gamma(), build(0).GammaDash()
	for k := range mid {
		fd := plus[k].Sub(minus[k]).Scale(1 / (2 * delta))
		assert.InDeltaSlice(t, mid[k][:], fd[:], 1e-5)
	}
}

func TestCurveShiftedRotated_VJPs(t *testing.T) {
	rng := newRNG()
	base := perturbedCircle(t, rng, 12, 2)
	rot, err := geo.NewFilamentRotation(base.Quadpoints(), 1)
	require.NoError(t, err)
	require.NoError(t, rot.SetLocalX([]float64{0.4, -0.2, 0.1}))
	f := geo.NewCurveShiftedRotated(base, 0.1, -0.05, rot)

	require.Equal(t, base.DofSize()+rot.DofSize(), f.DofSize())
	checkVJP(t, rng, f, flat(f.Gamma), unflatVJP(f.DGammaByDCoeffVJP), 1e-6)
	checkVJP(t, rng, f, flat(f.GammaDash), unflatVJP(f.DGammaDashByDCoeffVJP), 1e-6)
}

func TestCurveShiftedRotated_CacheFollowsBase(t *testing.T) {
	base := perturbedCircle(t, newRNG(), 8, 1)
	f := geo.NewCurveShiftedRotated(base, 0.1, 0, nil)
	before := f.Gamma()

	x0, err := base.Get("yc(0)")
	require.NoError(t, err)
	require.NoError(t, base.Set("yc(0)", x0+1))

	after := f.Gamma()
	for k := range before {
		assert.InDelta(t, before[k][1]+1, after[k][1], 1e-12)
	}
}

func TestCreateMultifilamentGrid(t *testing.T) {
	base := perturbedCircle(t, newRNG(), 8, 1)

	filaments, rot, err := geo.CreateMultifilamentGrid(base, 2, 3, 0.1, 0.2, 1)
	require.NoError(t, err)
	require.NotNil(t, rot)
	require.Len(t, filaments, 6)

	wantN := []float64{-0.05, 0.05}
	wantB := []float64{-0.2, 0, 0.2}
	for i, c := range filaments {
		f := c.(*geo.CurveShiftedRotated)
		dn, db := f.Offsets()
		assert.InDelta(t, wantN[i/3], dn, 1e-15)
		assert.InDelta(t, wantB[i%3], db, 1e-15)
		assert.Same(t, rot, f.Rotation())
	}

	// The shared rotation appears once in the flattened dofs.
	assert.Equal(t, base.DofSize()+rot.DofSize(), filaments[5].Opt().DofSize())
}

func TestCreateMultifilamentGrid_NoRotation(t *testing.T) {
	base := perturbedCircle(t, newRNG(), 8, 1)
	filaments, rot, err := geo.CreateMultifilamentGrid(base, 1, 1, 0.1, 0.1, -1)
	require.NoError(t, err)
	assert.Nil(t, rot)
	require.Len(t, filaments, 1)
	assert.Equal(t, base.DofSize(), filaments[0].Opt().DofSize())
}

func TestCreateMultifilamentGrid_Invalid(t *testing.T) {
	base := perturbedCircle(t, newRNG(), 8, 1)
	_, _, err := geo.CreateMultifilamentGrid(base, 0, 2, 0.1, 0.1, 0)
	assert.ErrorIs(t, err, geo.ErrInvalidCurve)
}
