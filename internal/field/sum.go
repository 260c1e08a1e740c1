package field

import (
	"math"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// FieldSum is the superposition of several fields sharing one point set.
type FieldSum struct {
	*optimizable.Optimizable

	fields []Field
	points []geo.Vec3
}

// NewFieldSum creates the sum of fields.
func NewFieldSum(fields ...Field) *FieldSum {
	parents := make([]optimizable.Node, len(fields))
	for i, f := range fields {
		parents[i] = f
	}
	return &FieldSum{
		Optimizable: optimizable.New("FieldSum", nil, nil, parents...),
		fields:      append([]Field(nil), fields...),
	}
}

// SetPoints implements Field. The points are forwarded to every term.
func (s *FieldSum) SetPoints(points []geo.Vec3) {
	s.points = append([]geo.Vec3(nil), points...)
	for _, f := range s.fields {
		f.SetPoints(points)
	}
	s.Invalidate()
}

// Points implements Field.
func (s *FieldSum) Points() []geo.Vec3 {
	return append([]geo.Vec3(nil), s.points...)
}

// B implements Field.
func (s *FieldSum) B() ([]geo.Vec3, error) {
	out := make([]geo.Vec3, len(s.points))
	for _, f := range s.fields {
		b, err := f.B()
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = out[i].Add(b[i])
		}
	}
	return out, nil
}

// BVJP implements Field.
func (s *FieldSum) BVJP(v []geo.Vec3) (optimizable.Derivative, error) {
	var d optimizable.Derivative
	for _, f := range s.fields {
		df, err := f.BVJP(v)
		if err != nil {
			return optimizable.Derivative{}, err
		}
		d.AddInPlace(df)
	}
	return d, nil
}

// ToroidalField is the vacuum field B0·R0/R in the toroidal direction. It
// has no dofs.
type ToroidalField struct {
	*optimizable.Optimizable

	r0, b0 float64
	points []geo.Vec3
}

// NewToroidalField creates a toroidal field of strength B0 at radius R0.
func NewToroidalField(R0, B0 float64) *ToroidalField {
	return &ToroidalField{
		Optimizable: optimizable.New("ToroidalField", nil, nil),
		r0:          R0,
		b0:          B0,
	}
}

// SetPoints implements Field.
func (f *ToroidalField) SetPoints(points []geo.Vec3) {
	f.points = append([]geo.Vec3(nil), points...)
	f.Invalidate()
}

// Points implements Field.
func (f *ToroidalField) Points() []geo.Vec3 {
	return append([]geo.Vec3(nil), f.points...)
}

// B implements Field. Points on the z axis are degenerate.
func (f *ToroidalField) B() ([]geo.Vec3, error) {
	out := make([]geo.Vec3, len(f.points))
	for i, p := range f.points {
		r2 := p[0]*p[0] + p[1]*p[1]
		if r2 < DefaultDegenerateDistance*DefaultDegenerateDistance {
			return nil, ErrDegeneratePoint
		}
		k := f.b0 * f.r0 / r2
		out[i] = geo.Vec3{-k * p[1], k * p[0], 0}
	}
	return out, nil
}

// BVJP implements Field. The field has no dofs, so the gradient is empty.
func (f *ToroidalField) BVJP(v []geo.Vec3) (optimizable.Derivative, error) {
	return optimizable.Derivative{}, nil
}

// Strength returns |B| at major radius R.
func (f *ToroidalField) Strength(R float64) float64 {
	return math.Abs(f.b0 * f.r0 / R)
}
