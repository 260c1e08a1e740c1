// Package stage2 assembles the stage-two coil problem from a run
// configuration: a target surface, circular base coils expanded by
// symmetry, their Biot–Savart field and the total objective
//
//	J = ½ ∫ (B·n)² dS + Σ w_k · penalty_k
//
// Every Build call returns a fresh, isolated graph.
package stage2

import (
	"fmt"
	"math"

	"github.com/coilopt/coilopt/internal/config"
	"github.com/coilopt/coilopt/internal/field"
	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/objectives"
	"github.com/coilopt/coilopt/internal/optimizable"
)

// CurrentScale is the factor between a current dof and amperes, so current
// dofs are of order one like the geometric ones.
const CurrentScale = 1e5

// Setup is one assembled problem.
type Setup struct {
	Config config.Config

	Surface *geo.SurfaceRZFourier

	// BaseCurves are the unique coil shapes; their dofs are optimized.
	BaseCurves []*geo.CurveXYZFourier
	// Currents are the dof-owning currents in units of CurrentScale.
	Currents []*field.Current
	// BaseCurrents are the currents of the base coils in amperes.
	BaseCurrents []field.CurrentLike
	// Rotations are the filament rotation profiles, one per base curve when
	// the multifilament grid is enabled with rotation.
	Rotations []*geo.FilamentRotation

	Coils []*field.Coil
	Field *field.BiotSavart

	Flux      *objectives.SquaredFlux
	Lengths   []*objectives.CurveLength
	Distance  *objectives.MinimumDistance
	Objective *objectives.Composite
}

// Build assembles the problem described by cfg.
func Build(cfg config.Config) (*Setup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Setup{Config: cfg}

	rng, err := geo.ParseRange(cfg.Surface.Range)
	if err != nil {
		return nil, err
	}
	sc := cfg.Surface
	s.Surface, err = geo.NewTorus(sc.NFP, sc.Stellsym, sc.MajorRadius, sc.MinorRadius, rng, sc.Nphi, sc.Ntheta)
	if err != nil {
		return nil, fmt.Errorf("stage2: surface: %w", err)
	}

	cc := cfg.Coils
	s.BaseCurves, err = geo.CreateEquallySpacedCurves(cc.NCoils, sc.NFP, sc.Stellsym, cc.R0, cc.R1, cc.Order, cc.Quadpoints)
	if err != nil {
		return nil, fmt.Errorf("stage2: base curves: %w", err)
	}

	s.buildCurrents()

	curves, currents, err := s.filaments()
	if err != nil {
		return nil, err
	}
	s.Coils, err = field.CoilsViaSymmetries(curves, currents, sc.NFP, sc.Stellsym)
	if err != nil {
		return nil, fmt.Errorf("stage2: symmetry: %w", err)
	}
	s.Field = field.NewBiotSavart(s.Coils)

	s.Flux, err = objectives.NewSquaredFlux(s.Surface, s.Field, nil)
	if err != nil {
		return nil, fmt.Errorf("stage2: flux: %w", err)
	}

	terms, err := s.penalties()
	if err != nil {
		return nil, err
	}
	s.Objective = objectives.Weighted(append([]objectives.Term{{Weight: 1, Objective: s.Flux}}, terms...)...)
	return s, nil
}

// NewFactory returns a function building fresh objective graphs for cfg,
// as used by concurrent gradient sweeps.
func NewFactory(cfg config.Config) func() (optimizable.Objective, error) {
	return func() (optimizable.Objective, error) {
		s, err := Build(cfg)
		if err != nil {
			return nil, err
		}
		return s.Objective, nil
	}
}

// buildCurrents creates one current per base coil. With a fixed total the
// last current is the total minus the others; otherwise the first current
// may be fixed.
func (s *Setup) buildCurrents() {
	cfg := s.Config.Currents
	n := s.Config.Coils.NCoils
	free := n
	if cfg.Total != 0 {
		free = n - 1
	}
	for range free {
		raw := field.NewCurrent(cfg.Value / CurrentScale)
		s.Currents = append(s.Currents, raw)
		s.BaseCurrents = append(s.BaseCurrents, field.Scale(raw, CurrentScale))
	}
	if cfg.Total != 0 {
		total := field.NewCurrent(cfg.Total)
		total.FixAll()
		s.BaseCurrents = append(s.BaseCurrents, field.Subtract(total, field.SumCurrents(s.BaseCurrents...)))
		return
	}
	if cfg.FixFirst {
		s.Currents[0].FixAll()
	}
}

// filaments returns the curves and currents to expand by symmetry: the base
// coils themselves or, with filaments enabled, an nn×nb grid per base coil
// sharing the coil current equally.
func (s *Setup) filaments() ([]geo.Curve, []field.CurrentLike, error) {
	fc := s.Config.Filaments
	if !fc.Enabled {
		curves := make([]geo.Curve, len(s.BaseCurves))
		for i, c := range s.BaseCurves {
			curves[i] = c
		}
		return curves, s.BaseCurrents, nil
	}

	nfil := fc.NN * fc.NB
	var (
		curves   []geo.Curve
		currents []field.CurrentLike
	)
	for i, base := range s.BaseCurves {
		fils, rot, err := geo.CreateMultifilamentGrid(base, fc.NN, fc.NB, fc.GapN, fc.GapB, fc.RotationOrder)
		if err != nil {
			return nil, nil, fmt.Errorf("stage2: filaments of coil %d: %w", i, err)
		}
		if rot != nil {
			s.Rotations = append(s.Rotations, rot)
		}
		share := field.Scale(s.BaseCurrents[i], 1/float64(nfil))
		for _, f := range fils {
			curves = append(curves, f)
			currents = append(currents, share)
		}
	}
	return curves, currents, nil
}

// penalties builds the weighted geometric terms. Zero weights drop terms.
func (s *Setup) penalties() ([]objectives.Term, error) {
	pc := s.Config.Penalties
	var terms []objectives.Term

	s.Lengths = make([]*objectives.CurveLength, len(s.BaseCurves))
	lengths := make([]objectives.Objective, len(s.BaseCurves))
	for i, c := range s.BaseCurves {
		s.Lengths[i] = objectives.NewCurveLength(c)
		lengths[i] = s.Lengths[i]
	}
	if pc.LengthWeight > 0 {
		if pc.LengthTarget > 0 {
			p, err := objectives.NewQuadraticPenalty(objectives.Sum(lengths...), pc.LengthTarget, objectives.PenaltyMax)
			if err != nil {
				return nil, err
			}
			terms = append(terms, objectives.Term{Weight: pc.LengthWeight, Objective: p})
		} else {
			for i, l := range s.Lengths {
				l0, err := l.J()
				if err != nil {
					return nil, fmt.Errorf("stage2: length of coil %d: %w", i, err)
				}
				p, err := objectives.NewQuadraticPenalty(l, l0, objectives.PenaltyIdentity)
				if err != nil {
					return nil, err
				}
				terms = append(terms, objectives.Term{Weight: pc.LengthWeight, Objective: p})
			}
		}
	}

	curves := make([]geo.Curve, len(s.Coils))
	for i, c := range s.Coils {
		curves[i] = c.Curve()
	}
	s.Distance = objectives.NewMinimumDistance(curves, pc.DistanceMin)
	if pc.DistanceWeight > 0 {
		terms = append(terms, objectives.Term{Weight: pc.DistanceWeight, Objective: s.Distance})
	}

	if pc.CurvatureWeight > 0 {
		for _, c := range s.BaseCurves {
			k, err := objectives.NewLpCurveCurvature(c, pc.CurvatureP, pc.CurvatureThreshold)
			if err != nil {
				return nil, err
			}
			terms = append(terms, objectives.Term{Weight: pc.CurvatureWeight, Objective: k})
		}
	}

	if pc.MSCWeight > 0 {
		for _, c := range s.BaseCurves {
			p, err := objectives.NewQuadraticPenalty(objectives.NewMeanSquaredCurvature(c), pc.MSCThreshold, objectives.PenaltyMax)
			if err != nil {
				return nil, err
			}
			terms = append(terms, objectives.Term{Weight: pc.MSCWeight, Objective: p})
		}
	}
	return terms, nil
}

// Report summarizes the current state of a setup.
type Report struct {
	J         float64
	Flux      float64
	MeanBn    float64 // mean of |B·n̂|/|B| over the surface grid
	MaxBn     float64
	Lengths   []float64
	MinDist   float64
	NumCoils  int
	NumDofs   int
	CurrentsA []float64 // base coil currents in amperes
}

// Report evaluates the objective and the field quality.
func (s *Setup) Report() (Report, error) {
	r := Report{
		NumCoils: len(s.Coils),
		NumDofs:  s.Objective.DofSize(),
		MinDist:  s.Distance.ShortestDistance(),
	}
	var err error
	if r.J, err = s.Objective.J(); err != nil {
		return Report{}, err
	}
	if r.Flux, err = s.Flux.J(); err != nil {
		return Report{}, err
	}
	b, err := s.Field.B()
	if err != nil {
		return Report{}, err
	}
	unit := s.Surface.UnitNormal()
	for i := range b {
		bn := math.Abs(b[i].Dot(unit[i])) / b[i].Norm()
		r.MeanBn += bn
		r.MaxBn = max(r.MaxBn, bn)
	}
	r.MeanBn /= float64(len(b))
	for i, l := range s.Lengths {
		v, err := l.J()
		if err != nil {
			return Report{}, fmt.Errorf("length of coil %d: %w", i, err)
		}
		r.Lengths = append(r.Lengths, v)
	}
	for _, c := range s.BaseCurrents {
		r.CurrentsA = append(r.CurrentsA, c.Value())
	}
	return r, nil
}
