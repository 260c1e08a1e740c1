// Package autodiff implements a small scalar reverse-mode differentiation tape.
//
// It is scoped to the closed-form geometric transforms whose Jacobians are
// tedious to derive by hand (the rotated centroid frame of filament curves).
// Everything else in the module propagates gradients through hand-written
// VJPs.
//
// Architecture:
//   - Tape: records scalar operations in execution order together with the
//     local partial derivatives of each result with respect to its operands.
//   - Backward: walks the tape in reverse and accumulates adjoints, summing
//     contributions when a variable feeds several operations.
//   - Dual: forward-mode tangents whose value and tangent parts are both tape
//     variables, so a Jacobian-vector product can itself be differentiated
//     in reverse (forward-over-reverse).
//
// Usage:
//
//	tape := autodiff.NewTape()
//	x := tape.Input(2.0)
//	y := tape.Mul(x, tape.Sin(x)) // y = x·sin(x)
//	adj := tape.Backward([]autodiff.Var{y}, []float64{1})
//	fmt.Println(adj[x]) // sin(2) + 2·cos(2)
package autodiff

import "math"

// Var is a handle to a scalar recorded on a Tape.
type Var int32

// entry is one recorded scalar with up to two operands.
type entry struct {
	value    float64
	parents  [2]Var
	partials [2]float64
	arity    uint8
}

// Tape records scalar operations for reverse-mode differentiation.
//
// A Tape is not safe for concurrent use; give each goroutine its own.
type Tape struct {
	entries []entry
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{entries: make([]entry, 0, 256)} // Pre-allocate for one frame evaluation
}

// Reset clears the tape, keeping its storage.
func (t *Tape) Reset() {
	t.entries = t.entries[:0]
}

// Len returns the number of recorded scalars.
func (t *Tape) Len() int {
	return len(t.entries)
}

// Input records an independent variable.
func (t *Tape) Input(v float64) Var {
	t.entries = append(t.entries, entry{value: v})
	return Var(len(t.entries) - 1)
}

// Const records a constant. It behaves like an input whose adjoint is ignored.
func (t *Tape) Const(v float64) Var {
	return t.Input(v)
}

// Value returns the forward value of v.
func (t *Tape) Value(v Var) float64 {
	return t.entries[v].value
}

func (t *Tape) unary(value float64, a Var, da float64) Var {
	t.entries = append(t.entries, entry{
		value:    value,
		parents:  [2]Var{a},
		partials: [2]float64{da},
		arity:    1,
	})
	return Var(len(t.entries) - 1)
}

func (t *Tape) binary(value float64, a Var, da float64, b Var, db float64) Var {
	t.entries = append(t.entries, entry{
		value:    value,
		parents:  [2]Var{a, b},
		partials: [2]float64{da, db},
		arity:    2,
	})
	return Var(len(t.entries) - 1)
}

// Add records a + b.
func (t *Tape) Add(a, b Var) Var {
	return t.binary(t.Value(a)+t.Value(b), a, 1, b, 1)
}

// Sub records a - b.
func (t *Tape) Sub(a, b Var) Var {
	return t.binary(t.Value(a)-t.Value(b), a, 1, b, -1)
}

// Mul records a·b.
func (t *Tape) Mul(a, b Var) Var {
	va, vb := t.Value(a), t.Value(b)
	return t.binary(va*vb, a, vb, b, va)
}

// Div records a / b.
func (t *Tape) Div(a, b Var) Var {
	va, vb := t.Value(a), t.Value(b)
	q := va / vb
	return t.binary(q, a, 1/vb, b, -q/vb)
}

// Neg records -a.
func (t *Tape) Neg(a Var) Var {
	return t.unary(-t.Value(a), a, -1)
}

// Scale records k·a for a constant k.
func (t *Tape) Scale(k float64, a Var) Var {
	return t.unary(k*t.Value(a), a, k)
}

// Sqrt records √a. The partial is infinite at zero, as it should be.
func (t *Tape) Sqrt(a Var) Var {
	s := math.Sqrt(t.Value(a))
	return t.unary(s, a, 0.5/s)
}

// Sin records sin(a).
func (t *Tape) Sin(a Var) Var {
	va := t.Value(a)
	return t.unary(math.Sin(va), a, math.Cos(va))
}

// Cos records cos(a).
func (t *Tape) Cos(a Var) Var {
	va := t.Value(a)
	return t.unary(math.Cos(va), a, -math.Sin(va))
}

// Backward computes adjoints of every recorded variable for the linear
// functional Σ cotangents[i]·outputs[i].
//
// Algorithm:
//  1. Seed the output adjoints with the cotangents (repeated outputs add up)
//  2. Walk the tape from the last entry to the first
//  3. Push each adjoint to the operands scaled by the recorded partials
//
// The returned slice is indexed by Var.
func (t *Tape) Backward(outputs []Var, cotangents []float64) []float64 {
	if len(outputs) != len(cotangents) {
		panic("backward: outputs and cotangents differ in length")
	}
	adj := make([]float64, len(t.entries))
	for i, o := range outputs {
		adj[o] += cotangents[i]
	}
	for i := len(t.entries) - 1; i >= 0; i-- {
		a := adj[i]
		if a == 0 {
			continue
		}
		e := &t.entries[i]
		for k := uint8(0); k < e.arity; k++ {
			adj[e.parents[k]] += e.partials[k] * a
		}
	}
	return adj
}
