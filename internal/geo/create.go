package geo

import (
	"fmt"
	"math"
)

// CreateEquallySpacedCurves returns ncurves circular coils of radius R1
// centred on the circle of radius R0, spread equally over one field period
// (half a period when stellsym) so that their symmetry images cover the
// torus without overlap. Each curve is a CurveXYZFourier of the given order
// with nquad quadpoints.
func CreateEquallySpacedCurves(ncurves, nfp int, stellsym bool, R0, R1 float64, order, nquad int) ([]*CurveXYZFourier, error) {
	if ncurves < 1 || nfp < 1 {
		return nil, fmt.Errorf("%w: %d curves, nfp %d", ErrInvalidCurve, ncurves, nfp)
	}
	if order < 1 {
		return nil, fmt.Errorf("%w: circular coils need order >= 1, got %d", ErrInvalidCurve, order)
	}
	sym := 1
	if stellsym {
		sym = 2
	}
	curves := make([]*CurveXYZFourier, ncurves)
	for i := range curves {
		c, err := NewCurveXYZFourier(Quadpoints(nquad), order)
		if err != nil {
			return nil, err
		}
		angle := (float64(i) + 0.5) * 2 * math.Pi / float64(sym*nfp*ncurves)
		s, co := math.Sincos(angle)
		x := c.FullX()
		ncoef := 2*order + 1
		x[0] = co * R0      // xc(0)
		x[2] = co * R1      // xc(1)
		x[ncoef] = s * R0   // yc(0)
		x[ncoef+2] = s * R1 // yc(1)
		x[2*ncoef+1] = -R1  // zs(1)
		if err := c.SetFullX(x); err != nil {
			return nil, err
		}
		curves[i] = c
	}
	return curves, nil
}
