package geo_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
	"github.com/stretchr/testify/require"
)

// newRNG returns a deterministic source for test data.
func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(1)) //nolint:gosec // G404: reproducible test data
}

// perturbedCircle returns a circle of radius 1 around (0, 0, 0) in the xz
// plane with small random higher modes, so every derivative is nonzero and
// the curvature never vanishes.
func perturbedCircle(t *testing.T, rng *rand.Rand, nquad, order int) *geo.CurveXYZFourier {
	t.Helper()
	c, err := geo.NewCurveXYZFourier(geo.Quadpoints(nquad), order)
	require.NoError(t, err)
	x := c.FullX()
	for i := range x {
		x[i] = 0.01 * (rng.Float64() - 0.5)
	}
	ncoef := 2*order + 1
	x[0] += 1.2       // xc(0)
	x[2] += 1         // xc(1)
	x[2*ncoef+1] += 1 // zs(1)
	require.NoError(t, c.SetFullX(x))
	return c
}

func randomVecs(rng *rand.Rand, n int) []geo.Vec3 {
	out := make([]geo.Vec3, n)
	for k := range out {
		out[k] = geo.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	}
	return out
}

func randomSlice(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// checkVJP compares ⟨v, ∂q/∂x · h⟩ from a centered difference of q along a
// random direction h of root's dofs with ⟨vjp(v), h⟩.
func checkVJP(t *testing.T, rng *rand.Rand, root optimizable.Node, q func() []float64, vjp func(v []float64) optimizable.Derivative, tol float64) {
	t.Helper()
	o := root.Opt()
	x0 := o.X()
	h := randomSlice(rng, len(x0))
	v := randomSlice(rng, len(q()))

	grad := vjp(v).Flatten(root)
	want := dot(grad, h)

	eval := func(eps float64) float64 {
		x := make([]float64, len(x0))
		for i := range x {
			x[i] = x0[i] + eps*h[i]
		}
		require.NoError(t, o.SetX(x))
		return dot(v, q())
	}
	const eps = 1e-6
	got := (eval(eps) - eval(-eps)) / (2 * eps)
	require.NoError(t, o.SetX(x0))

	scale := math.Max(1, math.Abs(want))
	require.InDelta(t, want, got, tol*scale, "directional derivative")
}

// flat adapts a Vec3 getter and VJP to checkVJP.
func flat(get func() []geo.Vec3) func() []float64 {
	return func() []float64 { return geo.Flatten(get()) }
}

func unflatVJP(vjp func([]geo.Vec3) optimizable.Derivative) func([]float64) optimizable.Derivative {
	return func(v []float64) optimizable.Derivative {
		vs := make([]geo.Vec3, len(v)/3)
		for k := range vs {
			vs[k] = geo.Vec3{v[3*k], v[3*k+1], v[3*k+2]}
		}
		return vjp(vs)
	}
}
