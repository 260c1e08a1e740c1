package optimizable

import (
	"fmt"
	"math"
)

// Dofs is the ordered parameter container of a single node: values, free
// flags and box bounds.
type Dofs struct {
	names []string
	x     []float64
	free  []bool
	lower []float64
	upper []float64
}

func newDofs(names []string, x0 []float64) *Dofs {
	n := len(x0)
	d := &Dofs{
		names: append([]string(nil), names...),
		x:     append([]float64(nil), x0...),
		free:  make([]bool, n),
		lower: make([]float64, n),
		upper: make([]float64, n),
	}
	for i := range n {
		d.free[i] = true
		d.lower[i] = math.Inf(-1)
		d.upper[i] = math.Inf(1)
	}
	return d
}

// Names returns the local dof names.
func (d *Dofs) Names() []string {
	return d.names
}

// IsFree reports whether the dof at index i is free.
func (d *Dofs) IsFree(i int) bool {
	return d.free[i]
}

// FreeSize returns the number of free local dofs.
func (d *Dofs) FreeSize() int {
	n := 0
	for _, f := range d.free {
		if f {
			n++
		}
	}
	return n
}

// FreeX returns a copy of the free values.
func (d *Dofs) FreeX() []float64 {
	return d.freeSelect(d.x)
}

// SetBounds sets the box bounds of a dof by name.
func (d *Dofs) SetBounds(name string, lower, upper float64) error {
	i, err := d.index(name)
	if err != nil {
		return err
	}
	if lower > upper {
		return fmt.Errorf("bounds for %q: lower %g above upper %g", name, lower, upper)
	}
	d.lower[i] = lower
	d.upper[i] = upper
	return nil
}

// project keeps the entries of a full-length local vector at free positions.
func (d *Dofs) project(full []float64) []float64 {
	if len(full) != len(d.x) {
		panic(fmt.Sprintf("derivative: vector of length %d for %d local dofs", len(full), len(d.x)))
	}
	return d.freeSelect(full)
}

func (d *Dofs) freeSelect(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for i, f := range d.free {
		if f {
			out = append(out, v[i])
		}
	}
	return out
}

// setFree writes values into the free slots and reports whether anything changed.
func (d *Dofs) setFree(values []float64) bool {
	changed := false
	j := 0
	for i, f := range d.free {
		if !f {
			continue
		}
		if d.x[i] != values[j] {
			d.x[i] = values[j]
			changed = true
		}
		j++
	}
	return changed
}

func (d *Dofs) index(name string) (int, error) {
	for i, n := range d.names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrDofNotFound, name)
}
