package field

import (
	"fmt"

	"github.com/coilopt/coilopt/internal/geo"
	"github.com/coilopt/coilopt/internal/optimizable"
	"github.com/coilopt/coilopt/internal/parallel"
)

// Field is a magnetic field evaluated at a settable point set.
type Field interface {
	optimizable.Node

	// SetPoints replaces the evaluation points and invalidates cached values.
	SetPoints(points []geo.Vec3)

	// Points returns a copy of the evaluation points.
	Points() []geo.Vec3

	// B returns the field at each point.
	B() ([]geo.Vec3, error)

	// BVJP returns the gradient of Σ v_i·B_i with respect to every upstream dof.
	BVJP(v []geo.Vec3) (optimizable.Derivative, error)
}

// BiotSavart is the superposition of the fields of a fixed list of coils.
// Field values are cached against the node's version, which moves whenever
// the points or any upstream dof change.
type BiotSavart struct {
	*optimizable.Optimizable

	coils  []*Coil
	kernel Kernel
	points []geo.Vec3

	cacheVersion uint64
	cacheValid   bool
	cache        []geo.Vec3
}

// NewBiotSavart creates an evaluator over coils using DirectKernel.
func NewBiotSavart(coils []*Coil) *BiotSavart {
	return NewBiotSavartWithKernel(coils, DirectKernel{Parallel: parallel.DefaultConfig()})
}

// NewBiotSavartWithKernel creates an evaluator with a custom kernel.
func NewBiotSavartWithKernel(coils []*Coil, kernel Kernel) *BiotSavart {
	parents := make([]optimizable.Node, len(coils))
	for i, c := range coils {
		parents[i] = c
	}
	return &BiotSavart{
		Optimizable: optimizable.New("BiotSavart", nil, nil, parents...),
		coils:       append([]*Coil(nil), coils...),
		kernel:      kernel,
	}
}

// Coils returns the coil list.
func (bs *BiotSavart) Coils() []*Coil {
	return append([]*Coil(nil), bs.coils...)
}

// SetPoints implements Field.
func (bs *BiotSavart) SetPoints(points []geo.Vec3) {
	bs.points = append([]geo.Vec3(nil), points...)
	bs.Invalidate()
}

// Points implements Field.
func (bs *BiotSavart) Points() []geo.Vec3 {
	return append([]geo.Vec3(nil), bs.points...)
}

// B implements Field. Kernel errors are returned as is.
func (bs *BiotSavart) B() ([]geo.Vec3, error) {
	if bs.cacheValid && bs.cacheVersion == bs.Version() {
		return append([]geo.Vec3(nil), bs.cache...), nil
	}
	out := make([]geo.Vec3, len(bs.points))
	unit := make([]geo.Vec3, len(bs.points))
	for _, coil := range bs.coils {
		if err := geo.CheckRegular(coil.curve); err != nil {
			return nil, fmt.Errorf("biot-savart: %s: %w", coil.Name(), err)
		}
		clear(unit)
		if err := bs.kernel.B(bs.points, coil.curve.Gamma(), coil.curve.GammaDash(), unit); err != nil {
			return nil, err
		}
		current := coil.current.Value()
		for i := range out {
			out[i] = out[i].Add(unit[i].Scale(current))
		}
	}
	bs.cache, bs.cacheVersion, bs.cacheValid = out, bs.Version(), true
	return append([]geo.Vec3(nil), out...), nil
}

// AbsB returns |B| at each point.
func (bs *BiotSavart) AbsB() ([]float64, error) {
	b, err := bs.B()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(b))
	for i := range b {
		out[i] = b[i].Norm()
	}
	return out, nil
}

// BVJP implements Field. Contributions of coils sharing a curve or current
// are summed on the shared node.
func (bs *BiotSavart) BVJP(v []geo.Vec3) (optimizable.Derivative, error) {
	if len(v) != len(bs.points) {
		return optimizable.Derivative{}, fmt.Errorf("biot-savart vjp: %d cotangents for %d points: %w",
			len(v), len(bs.points), optimizable.ErrDimensionMismatch)
	}
	var d optimizable.Derivative
	for _, coil := range bs.coils {
		if err := geo.CheckRegular(coil.curve); err != nil {
			return optimizable.Derivative{}, fmt.Errorf("biot-savart vjp: %s: %w", coil.Name(), err)
		}
		vg, vgd, vi, err := bs.kernel.BVJP(bs.points, coil.curve.Gamma(), coil.curve.GammaDash(), v)
		if err != nil {
			return optimizable.Derivative{}, err
		}
		current := coil.current.Value()
		for j := range vg {
			vg[j] = vg[j].Scale(current)
			vgd[j] = vgd[j].Scale(current)
		}
		d.AddInPlace(coil.VJP(vg, vgd, vi))
	}
	return d, nil
}
