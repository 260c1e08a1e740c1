package storage

import (
	"context"

	"github.com/coilopt/coilopt/internal/optim"
)

// Recorder is an optim.Observer that appends each iteration to a run.
type Recorder struct {
	ctx   context.Context
	store Store
	runID string
	scale float64
}

// NewRecorder records iterations of runID. scale is the objective scale the
// minimizer runs with; recorded J values are divided by it.
func NewRecorder(ctx context.Context, store Store, runID string, scale float64) *Recorder {
	if scale == 0 {
		scale = 1
	}
	return &Recorder{ctx: ctx, store: store, runID: runID, scale: scale}
}

// Observe implements optim.Observer.
func (r *Recorder) Observe(it optim.Iteration) error {
	return r.store.AppendIteration(r.ctx, r.runID, IterationRecord{
		Iter:        it.Iter,
		J:           it.F / r.scale,
		GradNorm:    it.GradNorm,
		Evaluations: it.Evaluations,
		Elapsed:     it.Elapsed,
	})
}

var _ optim.Observer = (*Recorder)(nil)
