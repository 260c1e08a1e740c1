package geo

import (
	"fmt"

	"github.com/coilopt/coilopt/internal/autodiff"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// CurveShiftedRotated is one filament of a finite-build coil: the base curve
// shifted by dn along the normal and db along the binormal of its rotated
// centroid frame.
//
// The centroid frame at each quadpoint is
//
//	t = γ'/|γ'|,  n ∝ δ - (δ·t)t with δ = γ - mean(γ),  b = t×n
//
// rotated about t by the angle α of the rotation node. The shifted tangent
// is the directional derivative of the frame along (γ', γ'', α'), so the base
// must provide γ''. Both getters and VJPs run on an autodiff tape: the tape
// records the frame with dual numbers and a reverse sweep pulls cotangents
// back to γ, γ', γ'' and α, which are then forwarded to the base curve and
// the rotation.
type CurveShiftedRotated struct {
	*optimizable.Optimizable

	base     FrenetCurve
	rotation Rotation
	dn, db   float64

	cache [2]vecCache
}

// NewCurveShiftedRotated creates a filament of base. A nil rotation means no
// rotation and adds no dependency.
func NewCurveShiftedRotated(base FrenetCurve, dn, db float64, rotation Rotation) *CurveShiftedRotated {
	parents := []optimizable.Node{base}
	if rotation == nil {
		rotation = NewZeroRotation(base.Quadpoints())
	} else {
		parents = append(parents, rotation)
	}
	return &CurveShiftedRotated{
		Optimizable: optimizable.New("CurveShiftedRotated", nil, nil, parents...),
		base:        base,
		rotation:    rotation,
		dn:          dn,
		db:          db,
	}
}

// Base returns the centroid curve.
func (c *CurveShiftedRotated) Base() FrenetCurve { return c.base }

// Rotation returns the rotation angle node.
func (c *CurveShiftedRotated) Rotation() Rotation { return c.rotation }

// Offsets returns the normal and binormal shifts.
func (c *CurveShiftedRotated) Offsets() (dn, db float64) { return c.dn, c.db }

// frameTape is one recorded evaluation of the shifted frame.
type frameTape struct {
	tape  *autodiff.Tape
	gamma []autodiff.DVec // γ with tangent γ'
	dash  []autodiff.DVec // γ' with tangent γ''
	alpha []autodiff.Dual // α with tangent α'
	shift []autodiff.DVec // dn·n̂ + db·b̂
}

func (c *CurveShiftedRotated) record() *frameTape {
	g := c.base.Gamma()
	gd := c.base.GammaDash()
	gdd := c.base.GammaDashDash()
	a := c.rotation.Alpha()
	ad := c.rotation.AlphaDash()
	n := len(g)

	ft := &frameTape{
		tape:  autodiff.NewTape(),
		gamma: make([]autodiff.DVec, n),
		dash:  make([]autodiff.DVec, n),
		alpha: make([]autodiff.Dual, n),
		shift: make([]autodiff.DVec, n),
	}
	tp := ft.tape
	for k := range n {
		ft.gamma[k] = tp.VecInput(g[k], gd[k])
		ft.dash[k] = tp.VecInput(gd[k], gdd[k])
		ft.alpha[k] = tp.DualInput(a[k], ad[k])
	}

	centroid := ft.gamma[0]
	for k := 1; k < n; k++ {
		centroid = tp.VAdd(centroid, ft.gamma[k])
	}
	inv := 1 / float64(n)
	for i := range centroid {
		centroid[i] = tp.DScale(inv, centroid[i])
	}

	for k := range n {
		t := tp.VNormalize(ft.dash[k])
		delta := tp.VSub(ft.gamma[k], centroid)
		nrm := tp.VNormalize(tp.VSub(delta, tp.VScale(tp.VDot(delta, t), t)))
		bin := tp.VCross(t, nrm)

		cos, sin := tp.DCos(ft.alpha[k]), tp.DSin(ft.alpha[k])
		nn := tp.VSub(tp.VScale(cos, nrm), tp.VScale(sin, bin))
		bb := tp.VAdd(tp.VScale(sin, nrm), tp.VScale(cos, bin))

		var shift autodiff.DVec
		for i := range shift {
			shift[i] = tp.DAdd(tp.DScale(c.dn, nn[i]), tp.DScale(c.db, bb[i]))
		}
		ft.shift[k] = shift
	}
	return ft
}

func (c *CurveShiftedRotated) eval(d int) []Vec3 {
	cache := &c.cache[d]
	if cache.valid && cache.version == c.Version() {
		return cache.data
	}
	ft := c.record()
	var base []Vec3
	if d == 0 {
		base = c.base.Gamma()
	} else {
		base = c.base.GammaDash()
	}
	out := make([]Vec3, len(base))
	for k := range base {
		var s Vec3
		if d == 0 {
			s = ft.tape.Values(ft.shift[k])
		} else {
			s = ft.tape.Tangents(ft.shift[k])
		}
		out[k] = base[k].Add(s)
	}
	cache.data, cache.version, cache.valid = out, c.Version(), true
	return out
}

// Quadpoints implements Curve.
func (c *CurveShiftedRotated) Quadpoints() []float64 { return c.base.Quadpoints() }

// Gamma implements Curve.
func (c *CurveShiftedRotated) Gamma() []Vec3 { return cloneVecs(c.eval(0)) }

// GammaDash implements Curve.
func (c *CurveShiftedRotated) GammaDash() []Vec3 { return cloneVecs(c.eval(1)) }

// pullback runs the reverse sweep for a cotangent on the shift values (d=0)
// or the shift tangents (d=1) and returns adjoints of γ, γ', γ'', α, α'.
func (c *CurveShiftedRotated) pullback(d int, v []Vec3) (vg, vgd, vgdd []Vec3, va, vad []float64) {
	ft := c.record()
	n := len(v)
	outputs := make([]autodiff.Var, 0, 3*n)
	cot := make([]float64, 0, 3*n)
	for k := range n {
		for i := range 3 {
			if d == 0 {
				outputs = append(outputs, ft.shift[k][i].Val)
			} else {
				outputs = append(outputs, ft.shift[k][i].Dot)
			}
			cot = append(cot, v[k][i])
		}
	}
	adj := ft.tape.Backward(outputs, cot)

	vg, vgd, vgdd = make([]Vec3, n), make([]Vec3, n), make([]Vec3, n)
	va, vad = make([]float64, n), make([]float64, n)
	for k := range n {
		for i := range 3 {
			vg[k][i] = adj[ft.gamma[k][i].Val]
			// γ' enters both as the tangent of γ and as the value of the dash vector.
			vgd[k][i] = adj[ft.gamma[k][i].Dot] + adj[ft.dash[k][i].Val]
			vgdd[k][i] = adj[ft.dash[k][i].Dot]
		}
		va[k] = adj[ft.alpha[k].Val]
		vad[k] = adj[ft.alpha[k].Dot]
	}
	return vg, vgd, vgdd, va, vad
}

// DGammaByDCoeffVJP implements Curve.
func (c *CurveShiftedRotated) DGammaByDCoeffVJP(v []Vec3) optimizable.Derivative {
	checkCotangent("dgamma_by_dcoeff_vjp", v, len(c.base.Quadpoints()))
	vg, vgd, _, va, _ := c.pullback(0, v)
	for k := range vg {
		vg[k] = vg[k].Add(v[k])
	}
	d := c.base.DGammaByDCoeffVJP(vg)
	d.AddInPlace(c.base.DGammaDashByDCoeffVJP(vgd))
	d.AddInPlace(c.rotation.DAlphaByDCoeffVJP(va))
	return d
}

// DGammaDashByDCoeffVJP implements Curve.
func (c *CurveShiftedRotated) DGammaDashByDCoeffVJP(v []Vec3) optimizable.Derivative {
	checkCotangent("dgammadash_by_dcoeff_vjp", v, len(c.base.Quadpoints()))
	vg, vgd, vgdd, va, vad := c.pullback(1, v)
	for k := range vgd {
		vgd[k] = vgd[k].Add(v[k])
	}
	d := c.base.DGammaByDCoeffVJP(vg)
	d.AddInPlace(c.base.DGammaDashByDCoeffVJP(vgd))
	d.AddInPlace(c.base.DGammaDashDashByDCoeffVJP(vgdd))
	d.AddInPlace(c.rotation.DAlphaByDCoeffVJP(va))
	d.AddInPlace(c.rotation.DAlphaDashByDCoeffVJP(vad))
	return d
}

// CreateMultifilamentGrid builds an nn×nb grid of filaments around curve
// with spacing gapn along the normal and gapb along the binormal, centred on
// the curve. All filaments share one FilamentRotation of the given order;
// a negative order gives unrotated filaments. Filaments are ordered by
// normal index, then binormal index.
func CreateMultifilamentGrid(curve FrenetCurve, nn, nb int, gapn, gapb float64, rotationOrder int) ([]Curve, *FilamentRotation, error) {
	if nn < 1 || nb < 1 {
		return nil, nil, fmt.Errorf("%w: filament grid %dx%d", ErrInvalidCurve, nn, nb)
	}
	var rotation *FilamentRotation
	var rot Rotation
	if rotationOrder >= 0 {
		var err error
		rotation, err = NewFilamentRotation(curve.Quadpoints(), rotationOrder)
		if err != nil {
			return nil, nil, err
		}
		rot = rotation
	}
	shiftsN := gridShifts(nn, gapn)
	shiftsB := gridShifts(nb, gapb)
	filaments := make([]Curve, 0, nn*nb)
	for _, dn := range shiftsN {
		for _, db := range shiftsB {
			filaments = append(filaments, NewCurveShiftedRotated(curve, dn, db, rot))
		}
	}
	return filaments, rotation, nil
}

// gridShifts returns n offsets spaced by gap and centred on zero.
func gridShifts(n int, gap float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if n%2 == 1 {
			out[i] = float64(i-n/2) * gap
		} else {
			out[i] = (float64(i) - float64(n)/2 + 0.5) * gap
		}
	}
	return out
}
