package objectives

import (
	"fmt"
	"math"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// CurveLength is the length of a closed curve, the mean of |γ'| over the
// quadpoints.
type CurveLength struct {
	*optimizable.Optimizable

	curve geo.Curve
}

// NewCurveLength creates the length objective.
func NewCurveLength(curve geo.Curve) *CurveLength {
	return &CurveLength{
		Optimizable: optimizable.New("CurveLength", nil, nil, curve),
		curve:       curve,
	}
}

// J implements Objective.
func (c *CurveLength) J() (float64, error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return 0, err
	}
	gd := c.curve.GammaDash()
	sum := 0.0
	for _, a := range gd {
		sum += a.Norm()
	}
	return sum / float64(len(gd)), nil
}

// DJ implements Objective.
func (c *CurveLength) DJ() (optimizable.Derivative, error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return optimizable.Derivative{}, err
	}
	gd := c.curve.GammaDash()
	n := float64(len(gd))
	v := make([]geo.Vec3, len(gd))
	for k, a := range gd {
		v[k] = a.Scale(1 / (a.Norm() * n))
	}
	return c.curve.DGammaDashByDCoeffVJP(v), nil
}

// LpCurveCurvature penalizes curvature above a threshold:
//
//	J = (1/p) · mean( max(κ − κ0, 0)^p · |γ'| )
type LpCurveCurvature struct {
	*optimizable.Optimizable

	curve     geo.FrenetCurve
	p         float64
	threshold float64
}

// NewLpCurveCurvature creates the curvature penalty. p must be at least 1.
func NewLpCurveCurvature(curve geo.FrenetCurve, p, threshold float64) (*LpCurveCurvature, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: curvature penalty power %g", ErrInvalidParameter, p)
	}
	return &LpCurveCurvature{
		Optimizable: optimizable.New("LpCurveCurvature", nil, nil, curve),
		curve:       curve,
		p:           p,
		threshold:   threshold,
	}, nil
}

// J implements Objective.
func (c *LpCurveCurvature) J() (float64, error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return 0, err
	}
	kappa := geo.Kappa(c.curve)
	gd := c.curve.GammaDash()
	sum := 0.0
	for k := range kappa {
		if e := kappa[k] - c.threshold; e > 0 {
			sum += math.Pow(e, c.p) * gd[k].Norm()
		}
	}
	return sum / (c.p * float64(len(kappa))), nil
}

// DJ implements Objective.
func (c *LpCurveCurvature) DJ() (optimizable.Derivative, error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return optimizable.Derivative{}, err
	}
	kappa := geo.Kappa(c.curve)
	gd, gdd := c.curve.GammaDash(), c.curve.GammaDashDash()
	n := float64(len(kappa))
	va, vb := make([]geo.Vec3, len(kappa)), make([]geo.Vec3, len(kappa))
	for k := range kappa {
		e := kappa[k] - c.threshold
		if e <= 0 {
			continue
		}
		l := gd[k].Norm()
		dk := math.Pow(e, c.p-1) * l / n
		da, db := geo.KappaPartials(gd[k], gdd[k])
		va[k] = da.Scale(dk).Add(gd[k].Scale(math.Pow(e, c.p) / (c.p * l * n)))
		vb[k] = db.Scale(dk)
	}
	d := c.curve.DGammaDashByDCoeffVJP(va)
	d.AddInPlace(c.curve.DGammaDashDashByDCoeffVJP(vb))
	return d, nil
}

// LpCurveTorsion penalizes torsion above a threshold:
//
//	J = (1/p) · mean( max(|τ| − τ0, 0)^p · |γ'| )
type LpCurveTorsion struct {
	*optimizable.Optimizable

	curve     geo.FrenetCurve
	p         float64
	threshold float64
}

// NewLpCurveTorsion creates the torsion penalty. p must be at least 1.
func NewLpCurveTorsion(curve geo.FrenetCurve, p, threshold float64) (*LpCurveTorsion, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: torsion penalty power %g", ErrInvalidParameter, p)
	}
	return &LpCurveTorsion{
		Optimizable: optimizable.New("LpCurveTorsion", nil, nil, curve),
		curve:       curve,
		p:           p,
		threshold:   threshold,
	}, nil
}

// J implements Objective.
func (c *LpCurveTorsion) J() (float64, error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return 0, err
	}
	tau := geo.Torsion(c.curve)
	gd := c.curve.GammaDash()
	sum := 0.0
	for k := range tau {
		if e := math.Abs(tau[k]) - c.threshold; e > 0 {
			sum += math.Pow(e, c.p) * gd[k].Norm()
		}
	}
	return sum / (c.p * float64(len(tau))), nil
}

// DJ implements Objective.
func (c *LpCurveTorsion) DJ() (optimizable.Derivative, error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return optimizable.Derivative{}, err
	}
	tau := geo.Torsion(c.curve)
	gd, gdd, gddd := c.curve.GammaDash(), c.curve.GammaDashDash(), c.curve.GammaDashDashDash()
	n := float64(len(tau))
	va, vb, vg := make([]geo.Vec3, len(tau)), make([]geo.Vec3, len(tau)), make([]geo.Vec3, len(tau))
	for k := range tau {
		e := math.Abs(tau[k]) - c.threshold
		if e <= 0 {
			continue
		}
		l := gd[k].Norm()
		dt := math.Pow(e, c.p-1) * l / n
		if tau[k] < 0 {
			dt = -dt
		}
		da, db, dg := geo.TorsionPartials(gd[k], gdd[k], gddd[k])
		va[k] = da.Scale(dt).Add(gd[k].Scale(math.Pow(e, c.p) / (c.p * l * n)))
		vb[k] = db.Scale(dt)
		vg[k] = dg.Scale(dt)
	}
	d := c.curve.DGammaDashByDCoeffVJP(va)
	d.AddInPlace(c.curve.DGammaDashDashByDCoeffVJP(vb))
	d.AddInPlace(c.curve.DGammaDashDashDashByDCoeffVJP(vg))
	return d, nil
}

// MeanSquaredCurvature is the arc-length weighted mean of κ²:
//
//	J = Σ κ²·|γ'| / Σ |γ'|
type MeanSquaredCurvature struct {
	*optimizable.Optimizable

	curve geo.FrenetCurve
}

// NewMeanSquaredCurvature creates the objective.
func NewMeanSquaredCurvature(curve geo.FrenetCurve) *MeanSquaredCurvature {
	return &MeanSquaredCurvature{
		Optimizable: optimizable.New("MeanSquaredCurvature", nil, nil, curve),
		curve:       curve,
	}
}

func (c *MeanSquaredCurvature) sums() (kappa, l []float64, weighted, length float64, err error) {
	if err := geo.CheckRegular(c.curve); err != nil {
		return nil, nil, 0, 0, err
	}
	kappa = geo.Kappa(c.curve)
	gd := c.curve.GammaDash()
	l = make([]float64, len(gd))
	for k := range gd {
		l[k] = gd[k].Norm()
		weighted += kappa[k] * kappa[k] * l[k]
		length += l[k]
	}
	return kappa, l, weighted, length, nil
}

// J implements Objective.
func (c *MeanSquaredCurvature) J() (float64, error) {
	_, _, weighted, length, err := c.sums()
	if err != nil {
		return 0, err
	}
	return weighted / length, nil
}

// DJ implements Objective.
func (c *MeanSquaredCurvature) DJ() (optimizable.Derivative, error) {
	kappa, l, weighted, length, err := c.sums()
	if err != nil {
		return optimizable.Derivative{}, err
	}
	j := weighted / length
	gd, gdd := c.curve.GammaDash(), c.curve.GammaDashDash()
	va, vb := make([]geo.Vec3, len(kappa)), make([]geo.Vec3, len(kappa))
	for k := range kappa {
		dk := 2 * kappa[k] * l[k] / length
		dl := (kappa[k]*kappa[k] - j) / length
		da, db := geo.KappaPartials(gd[k], gdd[k])
		va[k] = da.Scale(dk).Add(gd[k].Scale(dl / l[k]))
		vb[k] = db.Scale(dk)
	}
	d := c.curve.DGammaDashByDCoeffVJP(va)
	d.AddInPlace(c.curve.DGammaDashDashByDCoeffVJP(vb))
	return d, nil
}
