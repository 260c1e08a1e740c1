// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package geo

import "github.com/coilopt/coilopt/internal/geo"

// Errors returned by curve and surface constructors.
var (
	ErrSingularGeometry = geo.ErrSingularGeometry
	ErrInvalidCurve     = geo.ErrInvalidCurve
	ErrInvalidSurface   = geo.ErrInvalidSurface
)

// Vec3 is a point or vector in Cartesian coordinates.
type Vec3 = geo.Vec3

// Curve is a closed space curve sampled at fixed quadrature points.
type Curve = geo.Curve

// FrenetCurve is a Curve that also exposes third derivatives.
type FrenetCurve = geo.FrenetCurve

// CurveXYZFourier is a curve whose Cartesian components are Fourier series.
type CurveXYZFourier = geo.CurveXYZFourier

// Quadpoints returns n equally spaced points in [0, 1).
func Quadpoints(n int) []float64 {
	return geo.Quadpoints(n)
}

// NewCurveXYZFourier creates a zero curve of the given Fourier order.
func NewCurveXYZFourier(quadpoints []float64, order int) (*CurveXYZFourier, error) {
	return geo.NewCurveXYZFourier(quadpoints, order)
}

// CreateEquallySpacedCurves places ncurves circles of radius R1 around the
// major radius R0 within one half field period.
func CreateEquallySpacedCurves(ncurves, nfp int, stellsym bool, R0, R1 float64, order, nquad int) ([]*CurveXYZFourier, error) {
	return geo.CreateEquallySpacedCurves(ncurves, nfp, stellsym, R0, R1, order, nquad)
}

// Rotate returns base rotated by theta about the z axis, optionally flipped
// through the xy plane.
func Rotate(base Curve, theta float64, flip bool) Curve {
	return geo.Rotate(base, theta, flip)
}

// Kappa returns the curvature of c at each quadrature point.
func Kappa(c FrenetCurve) []float64 {
	return geo.Kappa(c)
}

// Torsion returns the torsion of c at each quadrature point.
func Torsion(c FrenetCurve) []float64 {
	return geo.Torsion(c)
}

// Multifilament

// Rotation is an angle function along a curve.
type Rotation = geo.Rotation

// FilamentRotation is a Fourier-parametrized rotation of the winding pack.
type FilamentRotation = geo.FilamentRotation

// CurveShiftedRotated is a filament offset from a base curve in its
// rotated Frenet frame.
type CurveShiftedRotated = geo.CurveShiftedRotated

// CreateMultifilamentGrid replaces curve by an nn × nb grid of filaments.
//
// Example:
//
//	filaments, rot, err := geo.CreateMultifilamentGrid(base, 2, 2, 0.02, 0.04, 1)
func CreateMultifilamentGrid(curve FrenetCurve, nn, nb int, gapn, gapb float64, rotationOrder int) ([]Curve, *FilamentRotation, error) {
	return geo.CreateMultifilamentGrid(curve, nn, nb, gapn, gapb, rotationOrder)
}

// Surfaces

// Surface is a toroidal surface sampled on a fixed (phi, theta) grid.
type Surface = geo.Surface

// Range selects the toroidal extent of a surface grid.
type Range = geo.Range

// Surface ranges.
const (
	RangeFullTorus   = geo.RangeFullTorus
	RangeFieldPeriod = geo.RangeFieldPeriod
	RangeHalfPeriod  = geo.RangeHalfPeriod
)

// SurfaceRZFourier is a surface given by Fourier series in R and Z.
type SurfaceRZFourier = geo.SurfaceRZFourier

// ParseRange parses a surface range name.
func ParseRange(s string) (Range, error) {
	return geo.ParseRange(s)
}

// NewTorus creates a circular-cross-section torus.
func NewTorus(nfp int, stellsym bool, R0, a float64, rng Range, nphi, ntheta int) (*SurfaceRZFourier, error) {
	return geo.NewTorus(nfp, stellsym, R0, a, rng, nphi, ntheta)
}
