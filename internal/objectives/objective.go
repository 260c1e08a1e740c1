// Package objectives implements scalar objective terms over the coil graph
// and their composition into a total objective.
//
// Every term is an optimizable.Objective: J is a pure function of the
// current state of its inputs and DJ is an adjoint pass through the inputs'
// own VJPs. Terms own no dofs; their X is the dofs of everything upstream.
package objectives

import (
	"github.com/coilopt/coilopt/internal/optimizable"
)

// Objective is a scalar term with a gradient.
type Objective = optimizable.Objective

// Term is one weighted entry of a Composite.
type Term struct {
	Weight    float64
	Objective Objective
}

// Composite is a weighted sum of objectives: J = Σ w_i·J_i.
type Composite struct {
	*optimizable.Optimizable

	terms []Term
}

// Weighted builds a composite from weighted terms.
func Weighted(terms ...Term) *Composite {
	parents := make([]optimizable.Node, len(terms))
	for i, t := range terms {
		parents[i] = t.Objective
	}
	return &Composite{
		Optimizable: optimizable.New("Composite", nil, nil, parents...),
		terms:       append([]Term(nil), terms...),
	}
}

// Sum builds the unweighted sum of objectives.
func Sum(objs ...Objective) *Composite {
	terms := make([]Term, len(objs))
	for i, o := range objs {
		terms[i] = Term{Weight: 1, Objective: o}
	}
	return Weighted(terms...)
}

// Scale builds k·obj.
func Scale(k float64, obj Objective) *Composite {
	return Weighted(Term{Weight: k, Objective: obj})
}

// Terms returns the weighted terms.
func (c *Composite) Terms() []Term {
	return append([]Term(nil), c.terms...)
}

// J implements Objective.
func (c *Composite) J() (float64, error) {
	total := 0.0
	for _, t := range c.terms {
		j, err := t.Objective.J()
		if err != nil {
			return 0, err
		}
		total += t.Weight * j
	}
	return total, nil
}

// DJ implements Objective.
func (c *Composite) DJ() (optimizable.Derivative, error) {
	var d optimizable.Derivative
	for _, t := range c.terms {
		dj, err := t.Objective.DJ()
		if err != nil {
			return optimizable.Derivative{}, err
		}
		d.AddInPlace(dj.Scale(t.Weight))
	}
	return d, nil
}
