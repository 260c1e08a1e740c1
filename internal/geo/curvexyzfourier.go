package geo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// CurveXYZFourier is a closed curve whose Cartesian components are truncated
// Fourier series in the curve parameter:
//
//	x(φ) = xc(0) + Σ_{m=1..order} xs(m)·sin(2πmφ) + xc(m)·cos(2πmφ)
//
// and likewise for y and z. The dofs are ordered per component as
// xc(0), xs(1), xc(1), …, xs(order), xc(order), then the y block, then z.
//
// Every derivative is linear in the dofs, so each getter is a fixed basis
// matrix applied to the coefficients and each VJP is its transpose.
type CurveXYZFourier struct {
	*optimizable.Optimizable

	quadpoints []float64
	order      int
	basis      [4]*mat.Dense // per derivative order: nquad × (2·order+1)
	cache      [4]vecCache
}

// vecCache holds a derived quantity and the version token it was computed at.
type vecCache struct {
	version uint64
	valid   bool
	data    []Vec3
}

// NewCurveXYZFourier creates a curve with all coefficients zero.
func NewCurveXYZFourier(quadpoints []float64, order int) (*CurveXYZFourier, error) {
	if order < 0 {
		return nil, fmt.Errorf("%w: order %d", ErrInvalidCurve, order)
	}
	if len(quadpoints) == 0 {
		return nil, fmt.Errorf("%w: no quadrature points", ErrInvalidCurve)
	}
	ncoef := 2*order + 1
	names := make([]string, 0, 3*ncoef)
	for _, dim := range []string{"x", "y", "z"} {
		names = append(names, dim+"c(0)")
		for m := 1; m <= order; m++ {
			names = append(names, fmt.Sprintf("%ss(%d)", dim, m), fmt.Sprintf("%sc(%d)", dim, m))
		}
	}
	c := &CurveXYZFourier{
		Optimizable: optimizable.New("CurveXYZFourier", names, make([]float64, 3*ncoef)),
		quadpoints:  append([]float64(nil), quadpoints...),
		order:       order,
	}
	for d := range c.basis {
		c.basis[d] = fourierBasis(c.quadpoints, order, d)
	}
	return c, nil
}

// fourierBasis returns the d-th derivative of [1, sin(2πφ), cos(2πφ), …]
// at each point, one row per point.
func fourierBasis(quadpoints []float64, order, d int) *mat.Dense {
	ncoef := 2*order + 1
	data := make([]float64, len(quadpoints)*ncoef)
	for k, phi := range quadpoints {
		row := data[k*ncoef : (k+1)*ncoef]
		if d == 0 {
			row[0] = 1
		}
		for m := 1; m <= order; m++ {
			w := 2 * math.Pi * float64(m)
			s, c := math.Sincos(w * phi)
			wd := math.Pow(w, float64(d))
			// d/dφ cycles (sin, cos) -> (cos, -sin) -> (-sin, -cos) -> (-cos, sin)
			switch d {
			case 0:
				row[2*m-1], row[2*m] = s, c
			case 1:
				row[2*m-1], row[2*m] = wd*c, -wd*s
			case 2:
				row[2*m-1], row[2*m] = -wd*s, -wd*c
			case 3:
				row[2*m-1], row[2*m] = -wd*c, wd*s
			}
		}
	}
	return mat.NewDense(len(quadpoints), ncoef, data)
}

// Order returns the Fourier order.
func (c *CurveXYZFourier) Order() int {
	return c.order
}

// Quadpoints implements Curve.
func (c *CurveXYZFourier) Quadpoints() []float64 {
	return append([]float64(nil), c.quadpoints...)
}

// SetCoefficient sets the coefficient of a cosine (cos=true) or sine mode of
// one Cartesian component (0, 1, 2 for x, y, z).
func (c *CurveXYZFourier) SetCoefficient(dim, m int, cos bool, v float64) error {
	if dim < 0 || dim > 2 || m < 0 || m > c.order || (m == 0 && !cos) {
		return fmt.Errorf("%w: mode (dim=%d, m=%d, cos=%t)", optimizable.ErrDofNotFound, dim, m, cos)
	}
	idx := dim*(2*c.order+1) + 2*m
	if !cos {
		idx--
	}
	x := c.FullX()
	x[idx] = v
	return c.SetFullX(x)
}

// eval returns basis[d]·Cᵀ, where row dim of C holds that component's
// coefficients.
func (c *CurveXYZFourier) eval(d int) []Vec3 {
	cache := &c.cache[d]
	if cache.valid && cache.version == c.Version() {
		return cache.data
	}
	ncoef := 2*c.order + 1
	var g mat.Dense
	g.Mul(c.basis[d], mat.NewDense(3, ncoef, c.FullX()).T())
	out := make([]Vec3, len(c.quadpoints))
	for k := range out {
		out[k] = Vec3(g.RawRowView(k))
	}
	cache.data, cache.version, cache.valid = out, c.Version(), true
	return out
}

// vjp returns Vᵀ·basis[d] laid out per component, which is the dof order.
func (c *CurveXYZFourier) vjp(op string, d int, v []Vec3) optimizable.Derivative {
	checkCotangent(op, v, len(c.quadpoints))
	ncoef := 2*c.order + 1
	grad := make([]float64, 3*ncoef)
	g := mat.NewDense(3, ncoef, grad)
	g.Mul(mat.NewDense(len(v), 3, Flatten(v)).T(), c.basis[d])
	return optimizable.Of(c, grad)
}

// Gamma implements Curve.
func (c *CurveXYZFourier) Gamma() []Vec3 { return cloneVecs(c.eval(0)) }

// GammaDash implements Curve.
func (c *CurveXYZFourier) GammaDash() []Vec3 { return cloneVecs(c.eval(1)) }

// GammaDashDash implements FrenetCurve.
func (c *CurveXYZFourier) GammaDashDash() []Vec3 { return cloneVecs(c.eval(2)) }

// GammaDashDashDash implements FrenetCurve.
func (c *CurveXYZFourier) GammaDashDashDash() []Vec3 { return cloneVecs(c.eval(3)) }

// DGammaByDCoeffVJP implements Curve.
func (c *CurveXYZFourier) DGammaByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.vjp("dgamma_by_dcoeff_vjp", 0, v)
}

// DGammaDashByDCoeffVJP implements Curve.
func (c *CurveXYZFourier) DGammaDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.vjp("dgammadash_by_dcoeff_vjp", 1, v)
}

// DGammaDashDashByDCoeffVJP implements FrenetCurve.
func (c *CurveXYZFourier) DGammaDashDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.vjp("dgammadashdash_by_dcoeff_vjp", 2, v)
}

// DGammaDashDashDashByDCoeffVJP implements FrenetCurve.
func (c *CurveXYZFourier) DGammaDashDashDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	return c.vjp("dgammadashdashdash_by_dcoeff_vjp", 3, v)
}
