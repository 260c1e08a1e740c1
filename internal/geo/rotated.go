package geo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// RotatedCurve is a base curve rotated about the z axis by a fixed angle and
// optionally flipped by the stellarator symmetry (x, y, z) -> (x, -y, -z).
// The flip is applied after the rotation. It owns no dofs; VJPs are pulled
// back through the transpose of the linear map and forwarded to the base.
//
// Since the map is applied to every derivative, Frenet frames computed from
// the transformed derivatives are the transformed frames of the base.
type RotatedCurve struct {
	*optimizable.Optimizable

	base   Curve
	rotmat *r3.Mat
}

// RotatedFrenetCurve is a RotatedCurve over a FrenetCurve base.
type RotatedFrenetCurve struct {
	*RotatedCurve

	frenet FrenetCurve
}

// Rotate wraps base in a rotation by theta with optional flip. The result is
// a *RotatedFrenetCurve when base is a FrenetCurve and a *RotatedCurve
// otherwise.
func Rotate(base Curve, theta float64, flip bool) Curve {
	rc := NewRotatedCurve(base, theta, flip)
	if fc, ok := base.(FrenetCurve); ok {
		return &RotatedFrenetCurve{RotatedCurve: rc, frenet: fc}
	}
	return rc
}

// NewRotatedCurve creates the rotation wrapper without higher derivatives.
func NewRotatedCurve(base Curve, theta float64, flip bool) *RotatedCurve {
	s, c := math.Sincos(theta)
	m := r3.NewMat([]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
	if flip {
		var flipped r3.Mat
		flipped.Mul(r3.NewMat([]float64{1, 0, 0, 0, -1, 0, 0, 0, -1}), m)
		m = &flipped
	}
	return &RotatedCurve{
		Optimizable: optimizable.New("RotatedCurve", nil, nil, base),
		base:        base,
		rotmat:      m,
	}
}

// Base returns the wrapped curve.
func (c *RotatedCurve) Base() Curve {
	return c.base
}

// Matrix returns the linear map applied to the base curve.
func (c *RotatedCurve) Matrix() *r3.Mat {
	return c.rotmat
}

func (c *RotatedCurve) apply(v []Vec3) []Vec3 {
	for k := range v {
		v[k] = MulVec(c.rotmat, v[k])
	}
	return v
}

func (c *RotatedCurve) pullback(op string, v []Vec3) []Vec3 {
	checkCotangent(op, v, len(c.base.Quadpoints()))
	out := make([]Vec3, len(v))
	for k := range v {
		out[k] = MulVecTrans(c.rotmat, v[k])
	}
	return out
}

// Quadpoints implements Curve.
func (c *RotatedCurve) Quadpoints() []float64 { return c.base.Quadpoints() }

// Gamma implements Curve.
func (c *RotatedCurve) Gamma() []Vec3 { return c.apply(c.base.Gamma()) }

// GammaDash implements Curve.
func (c *RotatedCurve) GammaDash() []Vec3 { return c.apply(c.base.GammaDash()) }

// DGammaByDCoeffVJP implements Curve.
func (c *RotatedCurve) DGammaByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.base.DGammaByDCoeffVJP(c.pullback("dgamma_by_dcoeff_vjp", v))
}

// DGammaDashByDCoeffVJP implements Curve.
func (c *RotatedCurve) DGammaDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.base.DGammaDashByDCoeffVJP(c.pullback("dgammadash_by_dcoeff_vjp", v))
}

// GammaDashDash implements FrenetCurve.
func (c *RotatedFrenetCurve) GammaDashDash() []Vec3 { return c.apply(c.frenet.GammaDashDash()) }

// GammaDashDashDash implements FrenetCurve.
func (c *RotatedFrenetCurve) GammaDashDashDash() []Vec3 {
	return c.apply(c.frenet.GammaDashDashDash())
}

// DGammaDashDashByDCoeffVJP implements FrenetCurve.
func (c *RotatedFrenetCurve) DGammaDashDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.frenet.DGammaDashDashByDCoeffVJP(c.pullback("dgammadashdash_by_dcoeff_vjp", v))
}

// DGammaDashDashDashByDCoeffVJP implements FrenetCurve.
func (c *RotatedFrenetCurve) DGammaDashDashDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.frenet.DGammaDashDashDashByDCoeffVJP(c.pullback("dgammadashdashdash_by_dcoeff_vjp", v))
}
