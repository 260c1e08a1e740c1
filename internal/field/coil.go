package field

import (
	"fmt"
	"math"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// Coil pairs a curve with a current. It owns no dofs; curves and currents
// may be shared between coils.
type Coil struct {
	*optimizable.Optimizable

	curve   geo.Curve
	current CurrentLike
}

// NewCoil creates a coil depending on curve and current.
func NewCoil(curve geo.Curve, current CurrentLike) *Coil {
	return &Coil{
		Optimizable: optimizable.New("Coil", nil, nil, curve, current),
		curve:       curve,
		current:     current,
	}
}

// Curve returns the coil's curve.
func (c *Coil) Curve() geo.Curve { return c.curve }

// Current returns the coil's current.
func (c *Coil) Current() CurrentLike { return c.current }

// VJP sums the curve's position and tangent VJPs and the current's VJP.
func (c *Coil) VJP(vGamma, vGammaDash []geo.Vec3, vCurrent float64) optimizable.Derivative {
	d := c.curve.DGammaByDCoeffVJP(vGamma)
	d.AddInPlace(c.curve.DGammaDashByDCoeffVJP(vGammaDash))
	d.AddInPlace(c.current.VJP(vCurrent))
	return d
}

func flipList(stellsym bool) []bool {
	if stellsym {
		return []bool{false, true}
	}
	return []bool{false}
}

// ApplySymmetriesToCurves returns n·nfp·(1+stellsym) curves: for each of the
// nfp rotations by 2πk/nfp, and for each flip state, the rotated copy of
// every base curve. The unrotated unflipped copies are the base curves.
func ApplySymmetriesToCurves(curves []geo.Curve, nfp int, stellsym bool) []geo.Curve {
	out := make([]geo.Curve, 0, len(curves)*nfp*2)
	for k := range nfp {
		for _, flip := range flipList(stellsym) {
			for _, c := range curves {
				if k == 0 && !flip {
					out = append(out, c)
					continue
				}
				out = append(out, geo.Rotate(c, 2*math.Pi*float64(k)/float64(nfp), flip))
			}
		}
	}
	return out
}

// ApplySymmetriesToCurrents returns the currents matching
// ApplySymmetriesToCurves: flipped copies are negated, the rest are the base
// currents.
func ApplySymmetriesToCurrents(currents []CurrentLike, nfp int, stellsym bool) []CurrentLike {
	out := make([]CurrentLike, 0, len(currents)*nfp*2)
	for range nfp {
		for _, flip := range flipList(stellsym) {
			for _, c := range currents {
				if flip {
					out = append(out, Negate(c))
				} else {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// CoilsViaSymmetries expands base curves and currents into the full coil set.
func CoilsViaSymmetries(curves []geo.Curve, currents []CurrentLike, nfp int, stellsym bool) ([]*Coil, error) {
	if len(curves) != len(currents) {
		return nil, fmt.Errorf("coils via symmetries: %d curves and %d currents: %w",
			len(curves), len(currents), optimizable.ErrDimensionMismatch)
	}
	if nfp < 1 {
		return nil, fmt.Errorf("coils via symmetries: nfp %d: %w", nfp, optimizable.ErrDimensionMismatch)
	}
	cs := ApplySymmetriesToCurves(curves, nfp, stellsym)
	is := ApplySymmetriesToCurrents(currents, nfp, stellsym)
	coils := make([]*Coil, len(cs))
	for i := range cs {
		coils[i] = NewCoil(cs[i], is[i])
	}
	return coils, nil
}
