// Package geo implements the geometric side of the coil graph: space curves
// sampled at fixed quadrature points, symmetry and filament transforms of
// those curves, Frenet quantities, and a Fourier boundary surface.
//
// Every curve quantity is a pure function of the curve dofs. Each getter has
// a paired VJP that applies the exact transpose of the quantity's Jacobian to
// a cotangent of matching shape and returns an optimizable.Derivative keyed by
// whichever nodes own the dofs (the curve itself, the base of a transformed
// curve, a filament rotation).
//
// Quadrature parameters live in [0, 1); derivatives are with respect to that
// parameter.
package geo

import (
	"fmt"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// MinTangentNorm is the smallest |γ'| accepted by CheckRegular.
const MinTangentNorm = 1e-10

// Curve is a closed space curve sampled at fixed quadrature points.
//
// Returned slices are copies; callers may modify them.
type Curve interface {
	optimizable.Node

	// Quadpoints returns the curve parameters of the samples.
	Quadpoints() []float64

	// Gamma returns the positions γ(φ_k).
	Gamma() []Vec3

	// GammaDash returns the first derivatives γ'(φ_k).
	GammaDash() []Vec3

	// DGammaByDCoeffVJP returns (∂γ/∂dofs)ᵀ v.
	DGammaByDCoeffVJP(v []Vec3) optimizable.Derivative

	// DGammaDashByDCoeffVJP returns (∂γ'/∂dofs)ᵀ v.
	DGammaDashByDCoeffVJP(v []Vec3) optimizable.Derivative
}

// FrenetCurve is a Curve with the higher derivatives needed for curvature
// and torsion.
type FrenetCurve interface {
	Curve

	// GammaDashDash returns γ''(φ_k).
	GammaDashDash() []Vec3

	// GammaDashDashDash returns γ'''(φ_k).
	GammaDashDashDash() []Vec3

	// DGammaDashDashByDCoeffVJP returns (∂γ''/∂dofs)ᵀ v.
	DGammaDashDashByDCoeffVJP(v []Vec3) optimizable.Derivative

	// DGammaDashDashDashByDCoeffVJP returns (∂γ'''/∂dofs)ᵀ v.
	DGammaDashDashDashByDCoeffVJP(v []Vec3) optimizable.Derivative
}

// Quadpoints returns n equally spaced parameters k/n in [0, 1).
func Quadpoints(n int) []float64 {
	q := make([]float64, n)
	for k := range q {
		q[k] = float64(k) / float64(n)
	}
	return q
}

// CheckRegular reports ErrSingularGeometry if the curve has non-finite
// samples or a tangent shorter than MinTangentNorm, which leaves the Frenet
// frame and the line element undefined.
func CheckRegular(c Curve) error {
	gamma := c.Gamma()
	gammadash := c.GammaDash()
	for k := range gamma {
		if !gamma[k].IsFinite() || !gammadash[k].IsFinite() {
			return fmt.Errorf("%w: %s has non-finite geometry at quadpoint %d", ErrSingularGeometry, c.Opt().Name(), k)
		}
		if n := gammadash[k].Norm(); n < MinTangentNorm {
			return fmt.Errorf("%w: %s has |γ'| = %g at quadpoint %d", ErrSingularGeometry, c.Opt().Name(), n, k)
		}
	}
	return nil
}

// checkCotangent panics if a VJP cotangent does not match the quadrature.
func checkCotangent(op string, v []Vec3, n int) {
	if len(v) != n {
		panic(fmt.Sprintf("%s: cotangent has %d points, curve has %d", op, len(v), n))
	}
}
