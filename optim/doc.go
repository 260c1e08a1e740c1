// Copyright 2025 coilopt authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim drives coil optimizations and checks objective gradients.
//
// # Overview
//
// This package contains:
//   - Problem: the flat objective(x) -> (J, ∇J) view of an objective graph
//   - LBFGS: limited-memory BFGS backed by gonum/optimize
//   - Adam and SGD: first-order steppers, run through Descent
//   - TaylorTest and GradientSweep: finite-difference gradient checks
//
// # Basic Usage
//
//	import (
//	    "github.com/coilopt/coilopt/objectives"
//	    "github.com/coilopt/coilopt/optim"
//	)
//
//	func main() {
//	    total := objectives.Weighted(
//	        objectives.Term{Weight: 1, Objective: flux},
//	        objectives.Term{Weight: 1e-2, Objective: lengthPenalty},
//	    )
//
//	    problem := optim.NewProblem(total, 1e-4)
//	    lbfgs := optim.NewLBFGS(optim.LBFGSConfig{MaxIterations: 400, Store: 300})
//	    result, err := lbfgs.Minimize(ctx, problem, problem.X0())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.J, result.Status)
//	}
//
// # Gradient checks
//
// A correct adjoint gradient shows centered-difference errors falling by a
// factor of one hundred for every tenfold step reduction:
//
//	res, err := optim.TaylorTest(problem, problem.X0(), h, nil)
//	ok := res.SecondOrder(3, 1e-11)
//
// Objective graphs are not safe for concurrent use. GradientSweep therefore
// takes a Factory and builds one graph per worker.
package optim
