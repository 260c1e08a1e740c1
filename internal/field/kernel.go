package field

import (
	"fmt"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/parallel"
)

// Mu0Over4Pi is μ0/(4π) in T·m/A.
const Mu0Over4Pi = 1e-7

// DefaultDegenerateDistance is the evaluation-point to filament-sample
// distance below which DirectKernel reports ErrDegeneratePoint.
const DefaultDegenerateDistance = 1e-10

// Kernel evaluates the Biot–Savart law for one closed filament carrying a
// unit current, discretized at its quadrature points, and the exact adjoint
// of that evaluation.
type Kernel interface {
	// B adds the unit-current field at each point to out.
	B(points, gamma, gammadash, out []geo.Vec3) error

	// BVJP returns, for cotangent v over the points, the cotangents of the
	// unit-current field with respect to gamma and gammadash, and v·B_unit,
	// the cotangent of the current.
	BVJP(points, gamma, gammadash, v []geo.Vec3) (vGamma, vGammaDash []geo.Vec3, vCurrent float64, err error)
}

// DirectKernel sums the discretized line integral
//
//	B(x) = μ0/(4π) · (1/N) · Σ_k γ'_k × (x − γ_k) / |x − γ_k|³
//
// over all point-sample pairs. It applies no near-field regularization.
type DirectKernel struct {
	// MinDistance is the degenerate-point threshold. Zero means
	// DefaultDegenerateDistance.
	MinDistance float64

	// Parallel splits B over evaluation points and BVJP over filament
	// samples. The zero value runs sequentially.
	Parallel parallel.Config
}

func (k DirectKernel) minDistance() float64 {
	if k.MinDistance > 0 {
		return k.MinDistance
	}
	return DefaultDegenerateDistance
}

func (k DirectKernel) degenerate(i, j int, x geo.Vec3, d float64) error {
	return fmt.Errorf("%w: point %d at %v is %g from filament sample %d", ErrDegeneratePoint, i, x, d, j)
}

// B implements Kernel.
func (k DirectKernel) B(points, gamma, gammadash, out []geo.Vec3) error {
	if len(out) != len(points) || len(gamma) != len(gammadash) {
		panic(fmt.Sprintf("biot-savart: %d points, %d outputs, %d samples, %d tangents", len(points), len(out), len(gamma), len(gammadash)))
	}
	c := Mu0Over4Pi / float64(len(gamma))
	dmin := k.minDistance()
	return parallel.ForErr(len(points), func(i int) error {
		x := points[i]
		var b geo.Vec3
		for j := range gamma {
			r := x.Sub(gamma[j])
			d := r.Norm()
			if d < dmin {
				return k.degenerate(i, j, x, d)
			}
			b = b.Add(gammadash[j].Cross(r).Scale(1 / (d * d * d)))
		}
		out[i] = out[i].Add(b.Scale(c))
		return nil
	}, k.Parallel)
}

// BVJP implements Kernel.
func (k DirectKernel) BVJP(points, gamma, gammadash, v []geo.Vec3) ([]geo.Vec3, []geo.Vec3, float64, error) {
	if len(v) != len(points) || len(gamma) != len(gammadash) {
		panic(fmt.Sprintf("biot-savart vjp: %d points, %d cotangents, %d samples, %d tangents", len(points), len(v), len(gamma), len(gammadash)))
	}
	c := Mu0Over4Pi / float64(len(gamma))
	dmin := k.minDistance()
	vGamma := make([]geo.Vec3, len(gamma))
	vGammaDash := make([]geo.Vec3, len(gamma))
	vCurrents := make([]float64, len(gamma))
	err := parallel.ForErr(len(gamma), func(j int) error {
		var vg, vgd geo.Vec3
		for i, x := range points {
			vi := v[i]
			r := x.Sub(gamma[j])
			d := r.Norm()
			if d < dmin {
				return k.degenerate(i, j, x, d)
			}
			inv3 := 1 / (d * d * d)
			w := vi.Cross(gammadash[j])
			wr := w.Dot(r)

			vCurrents[j] += wr * inv3
			vgd = vgd.Add(r.Cross(vi).Scale(inv3))
			vg = vg.Sub(w.Scale(inv3).Sub(r.Scale(3 * wr * inv3 / (d * d))))
		}
		vGamma[j] = vg.Scale(c)
		vGammaDash[j] = vgd.Scale(c)
		return nil
	}, k.Parallel)
	if err != nil {
		return nil, nil, 0, err
	}
	vCurrent := 0.0
	for _, vc := range vCurrents {
		vCurrent += vc
	}
	return vGamma, vGammaDash, c * vCurrent, nil
}
