package objectives

import (
	"fmt"
	"math"

	"github.com/coilopt/coilopt/internal/field"
	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// SquaredFlux is the quadratic normal-field error on a surface,
//
//	J = ½ ∫ (B·n̂ − B_T)² dS ≈ ½ Σ_i (B_i·n̂_i − t_i)² |n_i| / N
//
// over the N surface grid points. The field's evaluation points are set to
// the surface grid at construction and must not be moved afterwards.
type SquaredFlux struct {
	*optimizable.Optimizable

	surface geo.Surface
	field   field.Field
	target  []float64
}

// NewSquaredFlux creates the flux objective. A nil target means zero;
// otherwise it must have one entry per surface grid point.
func NewSquaredFlux(surface geo.Surface, f field.Field, target []float64) (*SquaredFlux, error) {
	n := surface.Nphi() * surface.Ntheta()
	if target != nil && len(target) != n {
		return nil, fmt.Errorf("squared flux: target has %d values for %d surface points: %w",
			len(target), n, optimizable.ErrDimensionMismatch)
	}
	f.SetPoints(surface.Gamma())
	return &SquaredFlux{
		Optimizable: optimizable.New("SquaredFlux", nil, nil, f),
		surface:     surface,
		field:       f,
		target:      append([]float64(nil), target...),
	}, nil
}

// Field returns the evaluated field.
func (s *SquaredFlux) Field() field.Field { return s.field }

// residual returns B·n̂ − t, the unit normals and the area elements. A
// vanishing or non-finite area element has no unit normal and is reported
// as ErrSingularGeometry.
func (s *SquaredFlux) residual() (res []float64, unit []geo.Vec3, area []float64, err error) {
	b, err := s.field.B()
	if err != nil {
		return nil, nil, nil, err
	}
	normal := s.surface.Normal()
	if len(b) != len(normal) {
		return nil, nil, nil, fmt.Errorf("squared flux: field has %d points, surface %d: %w",
			len(b), len(normal), optimizable.ErrDimensionMismatch)
	}
	res = make([]float64, len(b))
	unit = make([]geo.Vec3, len(b))
	area = make([]float64, len(b))
	for i := range b {
		area[i] = normal[i].Norm()
		if !(area[i] > 0) || math.IsInf(area[i], 0) {
			return nil, nil, nil, fmt.Errorf("%w: surface area element %g at point %d",
				geo.ErrSingularGeometry, area[i], i)
		}
		unit[i] = normal[i].Scale(1 / area[i])
		res[i] = b[i].Dot(unit[i])
		if len(s.target) > 0 {
			res[i] -= s.target[i]
		}
	}
	return res, unit, area, nil
}

// J implements Objective.
func (s *SquaredFlux) J() (float64, error) {
	res, _, area, err := s.residual()
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range res {
		sum += res[i] * res[i] * area[i]
	}
	return 0.5 * sum / float64(len(res)), nil
}

// DJ implements Objective.
func (s *SquaredFlux) DJ() (optimizable.Derivative, error) {
	res, unit, area, err := s.residual()
	if err != nil {
		return optimizable.Derivative{}, err
	}
	n := float64(len(res))
	v := make([]geo.Vec3, len(res))
	for i := range res {
		v[i] = unit[i].Scale(res[i] * area[i] / n)
	}
	return s.field.BVJP(v)
}

// NormalField returns B·n̂ at each surface point.
func (s *SquaredFlux) NormalField() ([]float64, error) {
	res, _, _, err := s.residual()
	if err != nil {
		return nil, err
	}
	if len(s.target) > 0 {
		for i := range res {
			res[i] += s.target[i]
		}
	}
	return res, nil
}
