// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package field

import (
	"github.com/coilopt/coilopt/geo"
	"github.com/coilopt/coilopt/internal/field"
)

// ErrDegeneratePoint is returned when an evaluation point lies on a filament.
var ErrDegeneratePoint = field.ErrDegeneratePoint

// Field is a differentiable magnetic field evaluated at a set of points.
type Field = field.Field

// Currents

// CurrentLike is anything that yields a current value and its VJP.
type CurrentLike = field.CurrentLike

// Current is a current with a single dof named "I".
type Current = field.Current

// ScaledCurrent is k times another current.
type ScaledCurrent = field.ScaledCurrent

// CurrentSum is the sum of two currents.
type CurrentSum = field.CurrentSum

// NewCurrent creates a free current.
func NewCurrent(value float64) *Current {
	return field.NewCurrent(value)
}

// Scale returns k·c.
func Scale(c CurrentLike, k float64) *ScaledCurrent {
	return field.Scale(c, k)
}

// Negate returns -c.
func Negate(c CurrentLike) *ScaledCurrent {
	return field.Negate(c)
}

// Add returns a + b.
func Add(a, b CurrentLike) *CurrentSum {
	return field.Add(a, b)
}

// Subtract returns a - b.
func Subtract(a, b CurrentLike) *CurrentSum {
	return field.Subtract(a, b)
}

// SumCurrents folds currents with Add. No currents gives a fixed zero.
func SumCurrents(currents ...CurrentLike) CurrentLike {
	return field.SumCurrents(currents...)
}

// Coils

// Coil is a curve carrying a current.
type Coil = field.Coil

// NewCoil pairs curve with current.
func NewCoil(curve geo.Curve, current CurrentLike) *Coil {
	return field.NewCoil(curve, current)
}

// CoilsViaSymmetries expands base coils to the full device using nfp-fold
// rotation and, if stellsym, stellarator symmetry.
func CoilsViaSymmetries(curves []geo.Curve, currents []CurrentLike, nfp int, stellsym bool) ([]*Coil, error) {
	return field.CoilsViaSymmetries(curves, currents, nfp, stellsym)
}

// Fields

// Kernel evaluates the Biot-Savart integral for one coil.
type Kernel = field.Kernel

// DirectKernel sums over every (point, quadrature point) pair.
type DirectKernel = field.DirectKernel

// BiotSavart is the field of a coil set.
type BiotSavart = field.BiotSavart

// NewBiotSavart creates a Biot-Savart field using the direct kernel.
func NewBiotSavart(coils []*Coil) *BiotSavart {
	return field.NewBiotSavart(coils)
}

// NewBiotSavartWithKernel creates a Biot-Savart field using kernel.
func NewBiotSavartWithKernel(coils []*Coil, kernel Kernel) *BiotSavart {
	return field.NewBiotSavartWithKernel(coils, kernel)
}

// FieldSum is the pointwise sum of several fields.
type FieldSum = field.FieldSum

// NewFieldSum creates the sum of fields.
func NewFieldSum(fields ...Field) *FieldSum {
	return field.NewFieldSum(fields...)
}

// ToroidalField is B0·R0/R in the toroidal direction.
type ToroidalField = field.ToroidalField

// NewToroidalField creates a 1/R toroidal field.
func NewToroidalField(R0, B0 float64) *ToroidalField {
	return field.NewToroidalField(R0, B0)
}
