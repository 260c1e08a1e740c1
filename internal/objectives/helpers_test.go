package objectives_test

import (
	"math/rand"
	"testing"

	"github.com/coilopt/coilopt/internal/field"
	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/objectives"
	"github.com/coilopt/coilopt/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(3)) //nolint:gosec // G404: reproducible test data
}

// circles returns n equally spaced circular coils of radius R1 centred on
// the circle of radius R0.
func circles(t *testing.T, n int, R0, R1 float64, order, nquad int) []*geo.CurveXYZFourier {
	t.Helper()
	cs, err := geo.CreateEquallySpacedCurves(n, 1, false, R0, R1, order, nquad)
	require.NoError(t, err)
	return cs
}

// perturb adds uniform noise of the given amplitude to every dof of c.
func perturb(t *testing.T, rng *rand.Rand, c *geo.CurveXYZFourier, amp float64) {
	t.Helper()
	x := c.FullX()
	for i := range x {
		x[i] += amp * (rng.Float64() - 0.5)
	}
	require.NoError(t, c.SetFullX(x))
}

func perturbedCircle(t *testing.T, rng *rand.Rand) *geo.CurveXYZFourier {
	t.Helper()
	c := circles(t, 1, 1, 0.5, 3, 40)[0]
	perturb(t, rng, c, 0.05)
	return c
}

// checkTaylor runs a Taylor test along a random direction and requires
// second-order convergence over the first three step reductions.
func checkTaylor(t *testing.T, rng *rand.Rand, obj objectives.Objective) *optim.TaylorResult {
	t.Helper()
	p := optim.NewProblem(obj, 1)
	x := p.X0()
	require.NotEmpty(t, x)
	h := make([]float64, len(x))
	for i := range h {
		h[i] = 0.1 * rng.NormFloat64()
	}
	res, err := optim.TaylorTest(p, x, h, nil)
	require.NoError(t, err)
	assert.True(t, res.SecondOrder(3, 1e-11), res.String())
	return res
}

// coilSet returns two perturbed base coils expanded with nfp = 2 and
// stellarator symmetry, currents 1e5 A as scaled dofs of order one.
func coilSet(t *testing.T, rng *rand.Rand) ([]*geo.CurveXYZFourier, []*field.Current, []*field.Coil) {
	t.Helper()
	base, err := geo.CreateEquallySpacedCurves(2, 2, true, 1, 0.5, 3, 30)
	require.NoError(t, err)
	curves := make([]geo.Curve, len(base))
	currents := make([]field.CurrentLike, len(base))
	raw := make([]*field.Current, len(base))
	for i, c := range base {
		perturb(t, rng, c, 0.04)
		curves[i] = c
		raw[i] = field.NewCurrent(1 + 0.1*float64(i))
		currents[i] = field.Scale(raw[i], 1e5)
	}
	coils, err := field.CoilsViaSymmetries(curves, currents, 2, true)
	require.NoError(t, err)
	return base, raw, coils
}

func torus(t *testing.T, nphi, ntheta int) *geo.SurfaceRZFourier {
	t.Helper()
	s, err := geo.NewTorus(2, true, 1, 0.2, geo.RangeHalfPeriod, nphi, ntheta)
	require.NoError(t, err)
	return s
}
