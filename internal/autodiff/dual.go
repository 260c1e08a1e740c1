package autodiff

// Dual is a first-order forward-mode number whose value and tangent are both
// recorded on a Tape. Differentiating Dot in reverse yields the adjoint of a
// Jacobian-vector product.
type Dual struct {
	Val Var
	Dot Var
}

// DVec is a 3-vector of duals.
type DVec [3]Dual

// DualInput records a dual input with the given value and tangent.
func (t *Tape) DualInput(v, dot float64) Dual {
	return Dual{Val: t.Input(v), Dot: t.Input(dot)}
}

// DualOf pairs two existing variables as value and tangent.
func DualOf(val, dot Var) Dual {
	return Dual{Val: val, Dot: dot}
}

// DAdd returns a + b.
func (t *Tape) DAdd(a, b Dual) Dual {
	return Dual{Val: t.Add(a.Val, b.Val), Dot: t.Add(a.Dot, b.Dot)}
}

// DSub returns a - b.
func (t *Tape) DSub(a, b Dual) Dual {
	return Dual{Val: t.Sub(a.Val, b.Val), Dot: t.Sub(a.Dot, b.Dot)}
}

// DMul returns a·b with tangent a·b' + a'·b.
func (t *Tape) DMul(a, b Dual) Dual {
	return Dual{
		Val: t.Mul(a.Val, b.Val),
		Dot: t.Add(t.Mul(a.Val, b.Dot), t.Mul(a.Dot, b.Val)),
	}
}

// DDiv returns a / b with tangent (a' - q·b') / b.
func (t *Tape) DDiv(a, b Dual) Dual {
	q := t.Div(a.Val, b.Val)
	return Dual{
		Val: q,
		Dot: t.Div(t.Sub(a.Dot, t.Mul(q, b.Dot)), b.Val),
	}
}

// DScale returns k·a for a constant k.
func (t *Tape) DScale(k float64, a Dual) Dual {
	return Dual{Val: t.Scale(k, a.Val), Dot: t.Scale(k, a.Dot)}
}

// DSqrt returns √a with tangent a' / (2√a).
func (t *Tape) DSqrt(a Dual) Dual {
	s := t.Sqrt(a.Val)
	return Dual{Val: s, Dot: t.Div(a.Dot, t.Scale(2, s))}
}

// DSin returns sin(a).
func (t *Tape) DSin(a Dual) Dual {
	return Dual{Val: t.Sin(a.Val), Dot: t.Mul(t.Cos(a.Val), a.Dot)}
}

// DCos returns cos(a).
func (t *Tape) DCos(a Dual) Dual {
	return Dual{Val: t.Cos(a.Val), Dot: t.Neg(t.Mul(t.Sin(a.Val), a.Dot))}
}

// VecInput records a dual 3-vector from values and tangents.
func (t *Tape) VecInput(v, dot [3]float64) DVec {
	return DVec{t.DualInput(v[0], dot[0]), t.DualInput(v[1], dot[1]), t.DualInput(v[2], dot[2])}
}

// VAdd returns a + b.
func (t *Tape) VAdd(a, b DVec) DVec {
	return DVec{t.DAdd(a[0], b[0]), t.DAdd(a[1], b[1]), t.DAdd(a[2], b[2])}
}

// VSub returns a - b.
func (t *Tape) VSub(a, b DVec) DVec {
	return DVec{t.DSub(a[0], b[0]), t.DSub(a[1], b[1]), t.DSub(a[2], b[2])}
}

// VScale returns s·a.
func (t *Tape) VScale(s Dual, a DVec) DVec {
	return DVec{t.DMul(s, a[0]), t.DMul(s, a[1]), t.DMul(s, a[2])}
}

// VDot returns a·b.
func (t *Tape) VDot(a, b DVec) Dual {
	return t.DAdd(t.DAdd(t.DMul(a[0], b[0]), t.DMul(a[1], b[1])), t.DMul(a[2], b[2]))
}

// VCross returns a×b.
func (t *Tape) VCross(a, b DVec) DVec {
	return DVec{
		t.DSub(t.DMul(a[1], b[2]), t.DMul(a[2], b[1])),
		t.DSub(t.DMul(a[2], b[0]), t.DMul(a[0], b[2])),
		t.DSub(t.DMul(a[0], b[1]), t.DMul(a[1], b[0])),
	}
}

// VNorm returns |a|.
func (t *Tape) VNorm(a DVec) Dual {
	return t.DSqrt(t.VDot(a, a))
}

// VNormalize returns a/|a|.
func (t *Tape) VNormalize(a DVec) DVec {
	n := t.VNorm(a)
	return DVec{t.DDiv(a[0], n), t.DDiv(a[1], n), t.DDiv(a[2], n)}
}

// Values returns the forward values of the value parts of a.
func (t *Tape) Values(a DVec) [3]float64 {
	return [3]float64{t.Value(a[0].Val), t.Value(a[1].Val), t.Value(a[2].Val)}
}

// Tangents returns the forward values of the tangent parts of a.
func (t *Tape) Tangents(a DVec) [3]float64 {
	return [3]float64{t.Value(a[0].Dot), t.Value(a[1].Dot), t.Value(a[2].Dot)}
}
