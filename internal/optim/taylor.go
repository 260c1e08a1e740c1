package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// DefaultTaylorEps is the step sequence 1e-2 … 1e-7.
func DefaultTaylorEps() []float64 {
	return []float64{1e-2, 1e-3, 1e-4, 1e-5, 1e-6, 1e-7}
}

// TaylorResult holds the outcome of a Taylor test along one direction.
type TaylorResult struct {
	Directional float64   // ∇J·h from the adjoint gradient
	Eps         []float64 // Step sizes
	Errors      []float64 // |(J(x+εh) − J(x−εh))/(2ε) − ∇J·h| per step
	Orders      []float64 // Observed convergence order between consecutive steps
}

// SecondOrder reports whether the first steps error reductions are
// consistent with a second-order centered difference. A step counts when
// the error falls by at least (ε_{i+1}/ε_i)^1.5 or is already below
// floor·max(1, |∇J·h|), the level where roundoff dominates.
func (r *TaylorResult) SecondOrder(steps int, floor float64) bool {
	if steps >= len(r.Errors) {
		steps = len(r.Errors) - 1
	}
	tiny := floor * math.Max(1, math.Abs(r.Directional))
	for i := range steps {
		if r.Errors[i+1] <= tiny {
			continue
		}
		want := math.Pow(r.Eps[i+1]/r.Eps[i], 1.5)
		if r.Errors[i+1] > want*r.Errors[i] {
			return false
		}
	}
	return true
}

// String formats the error table.
func (r *TaylorResult) String() string {
	s := fmt.Sprintf("dJ·h = %.12e\n", r.Directional)
	for i, eps := range r.Eps {
		s += fmt.Sprintf("eps %.0e  err %.6e", eps, r.Errors[i])
		if i > 0 {
			s += fmt.Sprintf("  order %.2f", r.Orders[i-1])
		}
		s += "\n"
	}
	return s
}

// TaylorTest compares the adjoint gradient at x along h with centered
// finite differences for each step in eps (DefaultTaylorEps when empty).
// The graph is left at x.
func TaylorTest(p *Problem, x, h, eps []float64) (*TaylorResult, error) {
	if len(x) != p.Dim() || len(h) != len(x) {
		return nil, fmt.Errorf("taylor: x has %d entries, h %d, for %d dofs: %w",
			len(x), len(h), p.Dim(), optimizable.ErrDimensionMismatch)
	}
	if len(eps) == 0 {
		eps = DefaultTaylorEps()
	}
	_, grad, err := p.Evaluate(x)
	if err != nil {
		return nil, fmt.Errorf("taylor: %w", err)
	}
	res := &TaylorResult{
		Directional: floats.Dot(grad, h),
		Eps:         append([]float64(nil), eps...),
		Errors:      make([]float64, len(eps)),
	}
	xh := make([]float64, len(x))
	for i, e := range eps {
		floats.AddScaledTo(xh, x, e, h)
		fp, err := p.Value(xh)
		if err != nil {
			return nil, fmt.Errorf("taylor: eps %g: %w", e, err)
		}
		floats.AddScaledTo(xh, x, -e, h)
		fm, err := p.Value(xh)
		if err != nil {
			return nil, fmt.Errorf("taylor: eps %g: %w", e, err)
		}
		res.Errors[i] = math.Abs((fp-fm)/(2*e) - res.Directional)
		if i > 0 {
			res.Orders = append(res.Orders,
				math.Log(res.Errors[i-1]/res.Errors[i])/math.Log(eps[i-1]/e))
		}
	}
	if err := p.Objective().Opt().SetX(x); err != nil {
		return nil, fmt.Errorf("taylor: %w", err)
	}
	return res, nil
}
