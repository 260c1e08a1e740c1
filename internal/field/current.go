// Package field implements the electromagnetic side of the coil graph:
// currents and their algebra, coils pairing a curve with a current,
// stellarator-symmetry expansion, and field evaluators with exact VJPs back
// to every upstream curve and current dof.
package field

import "github.com/coilopt/coilopt/internal/optimizable"

// CurrentLike is a node with a scalar current value.
type CurrentLike interface {
	optimizable.Node

	// Value returns the current in amperes.
	Value() float64

	// VJP returns (∂Value/∂dofs)ᵀ v.
	VJP(v float64) optimizable.Derivative
}

// Current owns a single dof "I", the current in amperes.
type Current struct {
	*optimizable.Optimizable
}

// NewCurrent creates a free current with the given value.
func NewCurrent(value float64) *Current {
	return &Current{Optimizable: optimizable.New("Current", []string{"I"}, []float64{value})}
}

// Value implements CurrentLike.
func (c *Current) Value() float64 {
	return c.FullX()[0]
}

// VJP implements CurrentLike.
func (c *Current) VJP(v float64) optimizable.Derivative {
	return optimizable.Of(c, []float64{v})
}

// ScaledCurrent is k times another current. It owns no dofs.
type ScaledCurrent struct {
	*optimizable.Optimizable

	base  CurrentLike
	scale float64
}

// Scale returns a new node with value k·c.
func Scale(c CurrentLike, k float64) *ScaledCurrent {
	return &ScaledCurrent{
		Optimizable: optimizable.New("ScaledCurrent", nil, nil, c),
		base:        c,
		scale:       k,
	}
}

// Negate returns a new node with value -c.
func Negate(c CurrentLike) *ScaledCurrent {
	return Scale(c, -1)
}

// Base returns the scaled current.
func (s *ScaledCurrent) Base() CurrentLike { return s.base }

// Factor returns the scale factor.
func (s *ScaledCurrent) Factor() float64 { return s.scale }

// Value implements CurrentLike.
func (s *ScaledCurrent) Value() float64 {
	return s.scale * s.base.Value()
}

// VJP implements CurrentLike.
func (s *ScaledCurrent) VJP(v float64) optimizable.Derivative {
	return s.base.VJP(s.scale * v)
}

// CurrentSum is the sum of two currents. It owns no dofs.
type CurrentSum struct {
	*optimizable.Optimizable

	a, b CurrentLike
}

// Add returns a new node with value a + b.
func Add(a, b CurrentLike) *CurrentSum {
	return &CurrentSum{
		Optimizable: optimizable.New("CurrentSum", nil, nil, a, b),
		a:           a,
		b:           b,
	}
}

// Subtract returns a new node with value a - b.
func Subtract(a, b CurrentLike) *CurrentSum {
	return Add(a, Negate(b))
}

// Value implements CurrentLike.
func (s *CurrentSum) Value() float64 {
	return s.a.Value() + s.b.Value()
}

// VJP implements CurrentLike. The cotangent reaches both operands unchanged.
func (s *CurrentSum) VJP(v float64) optimizable.Derivative {
	d := s.a.VJP(v)
	d.AddInPlace(s.b.VJP(v))
	return d
}

// SumCurrents folds the currents left to right with Add. A single current is
// returned unchanged; an empty list gives a fixed zero current.
func SumCurrents(currents ...CurrentLike) CurrentLike {
	if len(currents) == 0 {
		zero := NewCurrent(0)
		zero.FixAll()
		return zero
	}
	acc := currents[0]
	for _, c := range currents[1:] {
		acc = Add(acc, c)
	}
	return acc
}
