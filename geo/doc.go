// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package geo provides the parametric coil curves and plasma boundary
// surfaces that coil optimizations act on.
//
// Curves and surfaces are nodes in a dof graph. Changing any dof invalidates
// the cached geometry of every dependent node, and each curve exposes
// vector-Jacobian products so objectives can pull gradients back to the
// Fourier coefficients.
//
// Example:
//
//	import "github.com/coilopt/coilopt/geo"
//
//	func main() {
//	    curves, err := geo.CreateEquallySpacedCurves(4, 2, true, 1.0, 0.5, 5, 75)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    surface, err := geo.NewTorus(2, true, 1.0, 0.2, geo.RangeHalfPeriod, 16, 32)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(len(curves), len(surface.Gamma()))
//	}
package geo
