// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package objectives provides the differentiable scalar terms of a coil
// optimization: squared flux through a surface, geometric regularization of
// the coils and quadratic penalties on any of them.
//
// Every objective is a node in the dof graph and returns its gradient as a
// Derivative keyed by owning node, so terms can be weighted and summed
// freely.
//
// Example:
//
//	import "github.com/coilopt/coilopt/objectives"
//
//	func main() {
//	    flux, _ := objectives.NewSquaredFlux(surface, bs, nil)
//	    length := objectives.NewCurveLength(curve)
//	    penalty, _ := objectives.NewQuadraticPenalty(length, 2*math.Pi, objectives.PenaltyMax)
//
//	    total := objectives.Weighted(
//	        objectives.Term{Weight: 1, Objective: flux},
//	        objectives.Term{Weight: 1e-2, Objective: penalty},
//	    )
//	    j, err := total.J()
//	}
package objectives
