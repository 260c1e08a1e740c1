// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package field computes magnetic fields of filamentary coils.
//
// Coils pair a curve with a current. Currents form their own small graph so
// that scaled, negated and summed currents share dofs with the currents they
// derive from. BiotSavart evaluates the field of a coil set at a fixed set
// of points and pulls cotangents on B back to coil and current dofs.
//
// Example:
//
//	import (
//	    "github.com/coilopt/coilopt/field"
//	    "github.com/coilopt/coilopt/geo"
//	)
//
//	func main() {
//	    curves, _ := geo.CreateEquallySpacedCurves(4, 2, true, 1.0, 0.5, 5, 75)
//	    base := make([]geo.Curve, len(curves))
//	    currents := make([]field.CurrentLike, len(curves))
//	    for i, c := range curves {
//	        base[i] = c
//	        currents[i] = field.Scale(field.NewCurrent(6.5), 1e5)
//	    }
//	    coils, err := field.CoilsViaSymmetries(base, currents, 2, true)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    bs := field.NewBiotSavart(coils)
//	    bs.SetPoints([]geo.Vec3{{1, 0, 0}})
//	    b, err := bs.B()
//	}
package field
