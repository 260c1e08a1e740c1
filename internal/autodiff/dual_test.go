package autodiff_test

import (
	"math"
	"testing"

	"github.com/coilopt/coilopt/internal/autodiff"
	"github.com/stretchr/testify/assert"
)

// TestDual_Tangent checks the forward tangent of f(x) = sin(x)/√x against the analytic derivative.
func TestDual_Tangent(t *testing.T) {
	tape := autodiff.NewTape()
	x := tape.DualInput(1.2, 1)
	f := tape.DDiv(tape.DSin(x), tape.DSqrt(x))

	want := math.Cos(1.2)/math.Sqrt(1.2) - 0.5*math.Sin(1.2)/math.Pow(1.2, 1.5)
	assert.InDelta(t, want, tape.Value(f.Dot), 1e-14)
}

// TestDual_ReverseOverTangent differentiates the tangent of f(x) = x·cos(x)
// with respect to x: d/dx f'(x) = f''(x) = -2 sin(x) - x cos(x).
func TestDual_ReverseOverTangent(t *testing.T) {
	tape := autodiff.NewTape()
	x := tape.Input(0.4)
	one := tape.Const(1)
	xd := autodiff.DualOf(x, one)
	f := tape.DMul(xd, tape.DCos(xd))

	adj := tape.Backward([]autodiff.Var{f.Dot}, []float64{1})

	assert.InDelta(t, -2*math.Sin(0.4)-0.4*math.Cos(0.4), adj[x], 1e-14)
}

// TestVCross_Normalize checks vector helpers against plain float arithmetic.
func TestVCross_Normalize(t *testing.T) {
	tape := autodiff.NewTape()
	a := tape.VecInput([3]float64{1, 2, 3}, [3]float64{0.1, 0, -0.2})
	b := tape.VecInput([3]float64{-1, 0.5, 2}, [3]float64{0, 0.3, 0})

	c := tape.Values(tape.VCross(a, b))
	assert.InDeltaSlice(t, []float64{2*2 - 3*0.5, 3*-1 - 1*2, 1*0.5 - 2*-1}, c[:], 1e-14)

	n := tape.Values(tape.VNormalize(a))
	norm := math.Sqrt(14)
	assert.InDeltaSlice(t, []float64{1 / norm, 2 / norm, 3 / norm}, n[:], 1e-14)

	// d/ds |a + s·ȧ| at s=0 equals (a·ȧ)/|a|.
	nd := tape.Value(tape.VNorm(a).Dot)
	assert.InDelta(t, (0.1-0.6)/norm, nd, 1e-14)
}

// TestVDot_TangentMatchesFiniteDifference checks the Jacobian-vector product of a·b.
func TestVDot_TangentMatchesFiniteDifference(t *testing.T) {
	av := [3]float64{0.3, -1, 2}
	ad := [3]float64{1, 0.5, -0.25}
	bv := [3]float64{2, 1, 0}
	bd := [3]float64{0, -1, 3}

	tape := autodiff.NewTape()
	d := tape.VDot(tape.VecInput(av, ad), tape.VecInput(bv, bd))

	eval := func(s float64) float64 {
		sum := 0.0
		for i := range 3 {
			sum += (av[i] + s*ad[i]) * (bv[i] + s*bd[i])
		}
		return sum
	}
	assert.InDelta(t, (eval(1e-6)-eval(-1e-6))/2e-6, tape.Value(d.Dot), 1e-8)
}
