package objectives

import (
	"math"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// MinimumDistance penalizes pairs of curves closer than dmin:
//
//	J = Σ_{i<j} Σ_{k,l} |γ'_i,k|·|γ'_j,l|·max(dmin − |γ_i,k − γ_j,l|, 0)² / (N_i·N_j)
type MinimumDistance struct {
	*optimizable.Optimizable

	curves []geo.Curve
	dmin   float64
}

// NewMinimumDistance creates the distance penalty over all pairs of curves.
func NewMinimumDistance(curves []geo.Curve, dmin float64) *MinimumDistance {
	parents := make([]optimizable.Node, len(curves))
	for i, c := range curves {
		parents[i] = c
	}
	return &MinimumDistance{
		Optimizable: optimizable.New("MinimumDistance", nil, nil, parents...),
		curves:      append([]geo.Curve(nil), curves...),
		dmin:        dmin,
	}
}

type sampledCurve struct {
	gamma, dash []geo.Vec3
	l           []float64
}

func (m *MinimumDistance) sample() ([]sampledCurve, error) {
	out := make([]sampledCurve, len(m.curves))
	for i, c := range m.curves {
		if err := geo.CheckRegular(c); err != nil {
			return nil, err
		}
		s := sampledCurve{gamma: c.Gamma(), dash: c.GammaDash()}
		s.l = make([]float64, len(s.dash))
		for k := range s.dash {
			s.l[k] = s.dash[k].Norm()
		}
		out[i] = s
	}
	return out, nil
}

// J implements Objective.
func (m *MinimumDistance) J() (float64, error) {
	samples, err := m.sample()
	if err != nil {
		return 0, err
	}
	total := 0.0
	for i := range samples {
		for j := i + 1; j < len(samples); j++ {
			a, b := samples[i], samples[j]
			sum := 0.0
			for k := range a.gamma {
				for l := range b.gamma {
					if e := m.dmin - a.gamma[k].Sub(b.gamma[l]).Norm(); e > 0 {
						sum += a.l[k] * b.l[l] * e * e
					}
				}
			}
			total += sum / float64(len(a.gamma)*len(b.gamma))
		}
	}
	return total, nil
}

// DJ implements Objective.
func (m *MinimumDistance) DJ() (optimizable.Derivative, error) {
	samples, err := m.sample()
	if err != nil {
		return optimizable.Derivative{}, err
	}
	vg := make([][]geo.Vec3, len(samples))
	vd := make([][]geo.Vec3, len(samples))
	for i, s := range samples {
		vg[i] = make([]geo.Vec3, len(s.gamma))
		vd[i] = make([]geo.Vec3, len(s.gamma))
	}
	for i := range samples {
		for j := i + 1; j < len(samples); j++ {
			a, b := samples[i], samples[j]
			norm := 1 / float64(len(a.gamma)*len(b.gamma))
			for k := range a.gamma {
				for l := range b.gamma {
					r := a.gamma[k].Sub(b.gamma[l])
					d := r.Norm()
					e := m.dmin - d
					if e <= 0 {
						continue
					}
					w := a.l[k] * b.l[l] * norm
					// ∂/∂γ_i,k of w·e² is −2we·r/d.
					g := r.Scale(-2 * w * e / d)
					vg[i][k] = vg[i][k].Add(g)
					vg[j][l] = vg[j][l].Sub(g)
					vd[i][k] = vd[i][k].Add(a.dash[k].Scale(b.l[l] * e * e * norm / a.l[k]))
					vd[j][l] = vd[j][l].Add(b.dash[l].Scale(a.l[k] * e * e * norm / b.l[l]))
				}
			}
		}
	}
	var d optimizable.Derivative
	for i, c := range m.curves {
		d.AddInPlace(c.DGammaByDCoeffVJP(vg[i]))
		d.AddInPlace(c.DGammaDashByDCoeffVJP(vd[i]))
	}
	return d, nil
}

// ShortestDistance returns the smallest distance between samples of two
// different curves, or +Inf with fewer than two curves.
func (m *MinimumDistance) ShortestDistance() float64 {
	best := math.Inf(1)
	gammas := make([][]geo.Vec3, len(m.curves))
	for i, c := range m.curves {
		gammas[i] = c.Gamma()
	}
	for i := range gammas {
		for j := i + 1; j < len(gammas); j++ {
			for _, p := range gammas[i] {
				for _, q := range gammas[j] {
					best = math.Min(best, p.Sub(q).Norm())
				}
			}
		}
	}
	return best
}
