// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package objectives

import (
	"github.com/coilopt/coilopt/field"
	"github.com/coilopt/coilopt/geo"
	"github.com/coilopt/coilopt/internal/objectives"
)

// ErrInvalidParameter is returned for invalid objective parameters.
var ErrInvalidParameter = objectives.ErrInvalidParameter

// Objective is a differentiable scalar node.
type Objective = objectives.Objective

// Composition

// Term is one weighted summand.
type Term = objectives.Term

// Composite is a weighted sum of objectives.
type Composite = objectives.Composite

// Weighted returns the sum of weighted terms.
func Weighted(terms ...Term) *Composite {
	return objectives.Weighted(terms...)
}

// Sum returns the unweighted sum of objs.
func Sum(objs ...Objective) *Composite {
	return objectives.Sum(objs...)
}

// Scale returns k·obj.
func Scale(k float64, obj Objective) *Composite {
	return objectives.Scale(k, obj)
}

// Penalties

// PenaltyMode selects which side of the target is penalized.
type PenaltyMode = objectives.PenaltyMode

// Penalty modes.
const (
	PenaltyIdentity = objectives.PenaltyIdentity
	PenaltyMax      = objectives.PenaltyMax
	PenaltyMin      = objectives.PenaltyMin
)

// QuadraticPenalty is a one- or two-sided squared deviation from a target.
type QuadraticPenalty = objectives.QuadraticPenalty

// NewQuadraticPenalty wraps term.
func NewQuadraticPenalty(term Objective, target float64, mode PenaltyMode) (*QuadraticPenalty, error) {
	return objectives.NewQuadraticPenalty(term, target, mode)
}

// Field objectives

// SquaredFlux is the normalized squared normal field on a surface.
type SquaredFlux = objectives.SquaredFlux

// NewSquaredFlux creates a squared-flux objective. A nil target means zero.
func NewSquaredFlux(surface geo.Surface, f field.Field, target []float64) (*SquaredFlux, error) {
	return objectives.NewSquaredFlux(surface, f, target)
}

// Curve objectives

// CurveLength is the length of a curve.
type CurveLength = objectives.CurveLength

// NewCurveLength creates a length objective.
func NewCurveLength(curve geo.Curve) *CurveLength {
	return objectives.NewCurveLength(curve)
}

// LpCurveCurvature penalizes curvature above a threshold.
type LpCurveCurvature = objectives.LpCurveCurvature

// NewLpCurveCurvature creates a curvature penalty of power p.
func NewLpCurveCurvature(curve geo.FrenetCurve, p, threshold float64) (*LpCurveCurvature, error) {
	return objectives.NewLpCurveCurvature(curve, p, threshold)
}

// LpCurveTorsion penalizes torsion magnitude above a threshold.
type LpCurveTorsion = objectives.LpCurveTorsion

// NewLpCurveTorsion creates a torsion penalty of power p.
func NewLpCurveTorsion(curve geo.FrenetCurve, p, threshold float64) (*LpCurveTorsion, error) {
	return objectives.NewLpCurveTorsion(curve, p, threshold)
}

// MeanSquaredCurvature is the length-weighted mean of κ².
type MeanSquaredCurvature = objectives.MeanSquaredCurvature

// NewMeanSquaredCurvature creates a mean squared curvature objective.
func NewMeanSquaredCurvature(curve geo.FrenetCurve) *MeanSquaredCurvature {
	return objectives.NewMeanSquaredCurvature(curve)
}

// MinimumDistance penalizes pairs of curves closer than a minimum distance.
type MinimumDistance = objectives.MinimumDistance

// NewMinimumDistance creates a coil-to-coil distance penalty.
func NewMinimumDistance(curves []geo.Curve, dmin float64) *MinimumDistance {
	return objectives.NewMinimumDistance(curves, dmin)
}
