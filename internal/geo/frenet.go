package geo

import (
	"fmt"

	"github.com/coilopt/coilopt/internal/optimizable"
	"github.com/coilopt/coilopt/internal/parallel"
)

// SampleLoops splits per-quadpoint Frenet loops across goroutines. Every
// iteration writes only its own sample.
var SampleLoops = parallel.DefaultConfig()

// Curvature and torsion in terms of the parameter derivatives a = γ',
// b = γ'', g = γ''':
//
//	κ = |a×b| / |a|³
//	τ = (a×b)·g / |a×b|²
//
// Both are invariant under proper rotations, and the frame of a rotated
// curve is the rotated frame.

// Kappa returns the curvature at each quadpoint.
func Kappa(c FrenetCurve) []float64 {
	a, b := c.GammaDash(), c.GammaDashDash()
	out := make([]float64, len(a))
	parallel.For(len(a), func(k int) {
		na := a[k].Norm()
		out[k] = a[k].Cross(b[k]).Norm() / (na * na * na)
	}, SampleLoops)
	return out
}

// Torsion returns the torsion at each quadpoint. Straight segments, where
// a×b vanishes, have no torsion and yield NaN.
func Torsion(c FrenetCurve) []float64 {
	a, b, g := c.GammaDash(), c.GammaDashDash(), c.GammaDashDashDash()
	out := make([]float64, len(a))
	parallel.For(len(a), func(k int) {
		cr := a[k].Cross(b[k])
		out[k] = cr.Dot(g[k]) / cr.Dot(cr)
	}, SampleLoops)
	return out
}

// FrenetFrame returns the unit tangent, normal and binormal at each quadpoint.
func FrenetFrame(c FrenetCurve) (t, n, b []Vec3) {
	a, bb := c.GammaDash(), c.GammaDashDash()
	t, n, b = make([]Vec3, len(a)), make([]Vec3, len(a)), make([]Vec3, len(a))
	parallel.For(len(a), func(k int) {
		t[k] = a[k].Scale(1 / a[k].Norm())
		cr := a[k].Cross(bb[k])
		b[k] = cr.Scale(1 / cr.Norm())
		n[k] = b[k].Cross(t[k])
	}, SampleLoops)
	return t, n, b
}

// curvatureFloor is the |γ'×γ''| below which the curvature gradient is taken
// to be zero.
const curvatureFloor = 1e-14

// KappaPartials returns ∂κ/∂γ' and ∂κ/∂γ'' at one quadpoint.
func KappaPartials(a, b Vec3) (da, db Vec3) {
	na := a.Norm()
	na3 := na * na * na
	cr := a.Cross(b)
	nc := cr.Norm()
	if nc < curvatureFloor {
		return Vec3{}, Vec3{}
	}
	ch := cr.Scale(1 / nc)
	da = b.Cross(ch).Scale(1 / na3).Sub(a.Scale(3 * nc / (na3 * na * na)))
	db = ch.Cross(a).Scale(1 / na3)
	return da, db
}

// TorsionPartials returns ∂τ/∂γ', ∂τ/∂γ'' and ∂τ/∂γ''' at one quadpoint.
func TorsionPartials(a, b, g Vec3) (da, db, dg Vec3) {
	cr := a.Cross(b)
	s := cr.Dot(g)
	q := cr.Dot(cr)
	dsa, dsb := b.Cross(g), g.Cross(a)
	dqa, dqb := b.Cross(cr).Scale(2), cr.Cross(a).Scale(2)
	w := s / (q * q)
	da = dsa.Scale(1 / q).Sub(dqa.Scale(w))
	db = dsb.Scale(1 / q).Sub(dqb.Scale(w))
	dg = cr.Scale(1 / q)
	return da, db, dg
}

// KappaVJP returns (∂κ/∂dofs)ᵀ v.
func KappaVJP(c FrenetCurve, v []float64) optimizable.Derivative {
	a, b := c.GammaDash(), c.GammaDashDash()
	checkScalarCotangent("kappa_vjp", v, len(a))
	va, vb := make([]Vec3, len(a)), make([]Vec3, len(a))
	parallel.For(len(a), func(k int) {
		da, db := KappaPartials(a[k], b[k])
		va[k], vb[k] = da.Scale(v[k]), db.Scale(v[k])
	}, SampleLoops)
	d := c.DGammaDashByDCoeffVJP(va)
	d.AddInPlace(c.DGammaDashDashByDCoeffVJP(vb))
	return d
}

// TorsionVJP returns (∂τ/∂dofs)ᵀ v.
func TorsionVJP(c FrenetCurve, v []float64) optimizable.Derivative {
	a, b, g := c.GammaDash(), c.GammaDashDash(), c.GammaDashDashDash()
	checkScalarCotangent("torsion_vjp", v, len(a))
	va, vb, vg := make([]Vec3, len(a)), make([]Vec3, len(a)), make([]Vec3, len(a))
	parallel.For(len(a), func(k int) {
		da, db, dg := TorsionPartials(a[k], b[k], g[k])
		va[k], vb[k], vg[k] = da.Scale(v[k]), db.Scale(v[k]), dg.Scale(v[k])
	}, SampleLoops)
	d := c.DGammaDashByDCoeffVJP(va)
	d.AddInPlace(c.DGammaDashDashByDCoeffVJP(vb))
	d.AddInPlace(c.DGammaDashDashDashByDCoeffVJP(vg))
	return d
}

func checkScalarCotangent(op string, v []float64, n int) {
	if len(v) != n {
		panic(fmt.Sprintf("%s: cotangent has %d points, curve has %d", op, len(v), n))
	}
}
