package objectives

import (
	"fmt"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// PenaltyMode selects which side of the target QuadraticPenalty acts on.
type PenaltyMode string

// Penalty modes.
const (
	// PenaltyIdentity penalizes any deviation: ½(J − t)².
	PenaltyIdentity PenaltyMode = "identity"
	// PenaltyMax penalizes values above the target: ½max(J − t, 0)².
	PenaltyMax PenaltyMode = "max"
	// PenaltyMin penalizes values below the target: ½min(J − t, 0)².
	PenaltyMin PenaltyMode = "min"
)

// QuadraticPenalty is a one- or two-sided quadratic penalty on another
// objective's value.
type QuadraticPenalty struct {
	*optimizable.Optimizable

	term   Objective
	target float64
	mode   PenaltyMode
}

// NewQuadraticPenalty creates the penalty.
func NewQuadraticPenalty(term Objective, target float64, mode PenaltyMode) (*QuadraticPenalty, error) {
	switch mode {
	case PenaltyIdentity, PenaltyMax, PenaltyMin:
	default:
		return nil, fmt.Errorf("%w: penalty mode %q", ErrInvalidParameter, mode)
	}
	return &QuadraticPenalty{
		Optimizable: optimizable.New("QuadraticPenalty", nil, nil, term),
		term:        term,
		target:      target,
		mode:        mode,
	}, nil
}

// Target returns the penalty target.
func (q *QuadraticPenalty) Target() float64 { return q.target }

func (q *QuadraticPenalty) excess() (float64, error) {
	j, err := q.term.J()
	if err != nil {
		return 0, err
	}
	e := j - q.target
	switch q.mode {
	case PenaltyMax:
		e = max(e, 0)
	case PenaltyMin:
		e = min(e, 0)
	}
	return e, nil
}

// J implements Objective.
func (q *QuadraticPenalty) J() (float64, error) {
	e, err := q.excess()
	if err != nil {
		return 0, err
	}
	return 0.5 * e * e, nil
}

// DJ implements Objective.
func (q *QuadraticPenalty) DJ() (optimizable.Derivative, error) {
	e, err := q.excess()
	if err != nil {
		return optimizable.Derivative{}, err
	}
	if e == 0 {
		return optimizable.Derivative{}, nil
	}
	d, err := q.term.DJ()
	if err != nil {
		return optimizable.Derivative{}, err
	}
	return d.Scale(e), nil
}
