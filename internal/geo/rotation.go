package geo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// Rotation is an angle α(φ) along a curve, sampled at its quadrature points.
// It rotates the normal/binormal frame used to place filaments.
type Rotation interface {
	optimizable.Node

	// Alpha returns α(φ_k).
	Alpha() []float64

	// AlphaDash returns α'(φ_k).
	AlphaDash() []float64

	// DAlphaByDCoeffVJP returns (∂α/∂dofs)ᵀ v.
	DAlphaByDCoeffVJP(v []float64) optimizable.Derivative

	// DAlphaDashByDCoeffVJP returns (∂α'/∂dofs)ᵀ v.
	DAlphaDashByDCoeffVJP(v []float64) optimizable.Derivative
}

// FilamentRotation is a Fourier series for the winding-pack rotation angle:
//
//	α(φ) = a0 + Σ_{j=1..order} s_j·sin(2πjφ) + c_j·cos(2πjφ)
//
// with dofs [a0, s1, c1, …, s_order, c_order], all zero initially.
type FilamentRotation struct {
	*optimizable.Optimizable

	quadpoints []float64
	jac        [2]*mat.Dense // value and derivative basis
}

// NewFilamentRotation creates a rotation of the given order.
func NewFilamentRotation(quadpoints []float64, order int) (*FilamentRotation, error) {
	if order < 0 {
		return nil, fmt.Errorf("%w: rotation order %d", ErrInvalidCurve, order)
	}
	if len(quadpoints) == 0 {
		return nil, fmt.Errorf("%w: no quadrature points", ErrInvalidCurve)
	}
	names := []string{"a0"}
	for j := 1; j <= order; j++ {
		names = append(names, fmt.Sprintf("s%d", j), fmt.Sprintf("c%d", j))
	}
	q := append([]float64(nil), quadpoints...)
	return &FilamentRotation{
		Optimizable: optimizable.New("FilamentRotation", names, make([]float64, len(names))),
		quadpoints:  q,
		jac:         [2]*mat.Dense{fourierBasis(q, order, 0), fourierBasis(q, order, 1)},
	}, nil
}

func (r *FilamentRotation) eval(d int) []float64 {
	out := make([]float64, len(r.quadpoints))
	mat.NewVecDense(len(out), out).MulVec(r.jac[d], mat.NewVecDense(r.LocalSize(), r.FullX()))
	return out
}

func (r *FilamentRotation) vjp(d int, v []float64) optimizable.Derivative {
	if len(v) != len(r.quadpoints) {
		panic(fmt.Sprintf("filament rotation vjp: cotangent has %d points, rotation has %d", len(v), len(r.quadpoints)))
	}
	grad := make([]float64, r.LocalSize())
	mat.NewVecDense(len(grad), grad).MulVec(r.jac[d].T(), mat.NewVecDense(len(v), v))
	return optimizable.Of(r, grad)
}

// Alpha implements Rotation.
func (r *FilamentRotation) Alpha() []float64 { return r.eval(0) }

// AlphaDash implements Rotation.
func (r *FilamentRotation) AlphaDash() []float64 { return r.eval(1) }

// DAlphaByDCoeffVJP implements Rotation.
func (r *FilamentRotation) DAlphaByDCoeffVJP(v []float64) optimizable.Derivative { return r.vjp(0, v) }

// DAlphaDashByDCoeffVJP implements Rotation.
func (r *FilamentRotation) DAlphaDashByDCoeffVJP(v []float64) optimizable.Derivative {
	return r.vjp(1, v)
}

// ZeroRotation is the identically zero rotation. It has no dofs.
type ZeroRotation struct {
	*optimizable.Optimizable

	n int
}

// NewZeroRotation creates a zero rotation over n quadrature points.
func NewZeroRotation(quadpoints []float64) *ZeroRotation {
	return &ZeroRotation{
		Optimizable: optimizable.New("ZeroRotation", nil, nil),
		n:           len(quadpoints),
	}
}

// Alpha implements Rotation.
func (r *ZeroRotation) Alpha() []float64 { return make([]float64, r.n) }

// AlphaDash implements Rotation.
func (r *ZeroRotation) AlphaDash() []float64 { return make([]float64, r.n) }

// DAlphaByDCoeffVJP implements Rotation.
func (r *ZeroRotation) DAlphaByDCoeffVJP([]float64) optimizable.Derivative {
	return optimizable.Derivative{}
}

// DAlphaDashByDCoeffVJP implements Rotation.
func (r *ZeroRotation) DAlphaDashByDCoeffVJP([]float64) optimizable.Derivative {
	return optimizable.Derivative{}
}
