// Package optimizable implements the degree-of-freedom graph shared by every
// optimizable entity (curves, currents, coils, fields, objective terms).
//
// Architecture:
//   - Composition: concrete types embed *Optimizable, which owns the local
//     dofs and the dependency links.
//   - DAG: parents are fixed at construction, so cycles cannot be formed.
//   - Version tokens: every dof write draws a fresh global token and stamps it
//     on the written node and all of its descendants. Caches compare the
//     token they were computed against with Version().
//   - Flattening: a node's visible dof vector is the free dofs of its
//     ancestors and itself in post-order (parents first, registration order
//     breaks ties, shared ancestors appear once).
//
// Usage:
//
//	current := optimizable.New("Current", []string{"I"}, []float64{1e5})
//	coil := optimizable.New("Coil", nil, nil, curve, current)
//	x := coil.X()       // curve dofs followed by the current dof
//	err := coil.SetX(x) // fans values back out to the owners
package optimizable

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Node is implemented by every entity that participates in the dof graph.
// Types embedding *Optimizable satisfy it automatically.
type Node interface {
	Opt() *Optimizable
}

// Objective is a scalar function of the graph with an exact gradient.
type Objective interface {
	Node

	// J returns the objective value at the current dofs.
	J() (float64, error)

	// DJ returns the gradient as a sparse-by-node Derivative.
	DJ() (Derivative, error)
}

var (
	nextID      atomic.Uint64
	nextVersion atomic.Uint64

	namesMu sync.Mutex
	names   = make(map[string]int)
)

// uniqueName returns kind followed by a per-kind counter (Current1, Current2, ...).
func uniqueName(kind string) string {
	namesMu.Lock()
	defer namesMu.Unlock()
	names[kind]++
	return fmt.Sprintf("%s%d", kind, names[kind])
}

// Optimizable owns the local dofs of one graph node and its dependency links.
type Optimizable struct {
	id       uint64
	name     string
	dofs     *Dofs
	parents  []Node
	children []*Optimizable
	version  uint64
}

// New creates a node with the given local dofs that depends on parents.
//
// Parameters:
//   - kind: type label used to derive a unique name (e.g. "CurveXYZFourier")
//   - dofNames: names of the local dofs, len(dofNames) == len(x0)
//   - x0: initial dof values, all free and unbounded
//   - parents: nodes this one depends on, in registration order
func New(kind string, dofNames []string, x0 []float64, parents ...Node) *Optimizable {
	if len(dofNames) != len(x0) {
		panic(fmt.Sprintf("optimizable: %d names for %d dofs", len(dofNames), len(x0)))
	}
	o := &Optimizable{
		id:      nextID.Add(1),
		name:    uniqueName(kind),
		dofs:    newDofs(dofNames, x0),
		parents: append([]Node(nil), parents...),
		version: nextVersion.Add(1),
	}
	for _, p := range parents {
		if p == nil {
			panic("optimizable: nil parent")
		}
		po := p.Opt()
		po.children = append(po.children, o)
	}
	return o
}

// Opt returns the receiver so that embedding types satisfy Node.
func (o *Optimizable) Opt() *Optimizable {
	return o
}

// ID returns the process-unique identity of the node.
func (o *Optimizable) ID() uint64 {
	return o.id
}

// Name returns the unique node name.
func (o *Optimizable) Name() string {
	return o.name
}

// Parents returns the direct dependencies in registration order.
func (o *Optimizable) Parents() []Node {
	return o.parents
}

// Version returns the cache token for this node. It changes whenever the
// dofs of the node or of any ancestor change, or Invalidate is called on
// either.
func (o *Optimizable) Version() uint64 {
	return o.version
}

// Invalidate marks every cached quantity derived from this node as stale.
// Used for state that is not a dof, such as field evaluation points.
func (o *Optimizable) Invalidate() {
	token := nextVersion.Add(1)
	visited := make(map[*Optimizable]bool)
	var stamp func(n *Optimizable)
	stamp = func(n *Optimizable) {
		if visited[n] {
			return
		}
		visited[n] = true
		n.version = token
		for _, c := range n.children {
			stamp(c)
		}
	}
	stamp(o)
}

// Ancestors returns all nodes this one transitively depends on, parents
// before children, each node once.
func (o *Optimizable) Ancestors() []*Optimizable {
	owners := o.dofOwners()
	return owners[:len(owners)-1]
}

// dofOwners returns ancestors followed by the node itself.
func (o *Optimizable) dofOwners() []*Optimizable {
	var order []*Optimizable
	seen := make(map[*Optimizable]bool)
	var visit func(n *Optimizable)
	visit = func(n *Optimizable) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, p := range n.parents {
			visit(p.Opt())
		}
		order = append(order, n)
	}
	visit(o)
	return order
}

// DofSize returns the number of free dofs visible from this node.
func (o *Optimizable) DofSize() int {
	n := 0
	for _, owner := range o.dofOwners() {
		n += owner.dofs.FreeSize()
	}
	return n
}

// X returns the free dofs of the node and all its ancestors.
func (o *Optimizable) X() []float64 {
	x := make([]float64, 0, o.DofSize())
	for _, owner := range o.dofOwners() {
		x = append(x, owner.dofs.FreeX()...)
	}
	return x
}

// SetX distributes a flat dof vector to the owning nodes in the order used by X.
//
// Returns ErrDimensionMismatch if len(x) differs from DofSize. Only nodes
// whose values actually change are invalidated, so SetX(X()) keeps caches.
func (o *Optimizable) SetX(x []float64) error {
	owners := o.dofOwners()
	want := 0
	for _, owner := range owners {
		want += owner.dofs.FreeSize()
	}
	if len(x) != want {
		return fmt.Errorf("%w: set_x got %d values, graph has %d free dofs", ErrDimensionMismatch, len(x), want)
	}
	offset := 0
	for _, owner := range owners {
		n := owner.dofs.FreeSize()
		if owner.dofs.setFree(x[offset : offset+n]) {
			owner.Invalidate()
		}
		offset += n
	}
	return nil
}

// DofNames returns "<node>:<dof>" labels for X in the same order.
func (o *Optimizable) DofNames() []string {
	var out []string
	for _, owner := range o.dofOwners() {
		for i, name := range owner.dofs.names {
			if owner.dofs.free[i] {
				out = append(out, owner.name+":"+name)
			}
		}
	}
	return out
}

// LowerBounds returns lower bounds aligned with X.
func (o *Optimizable) LowerBounds() []float64 {
	var out []float64
	for _, owner := range o.dofOwners() {
		out = append(out, owner.dofs.freeSelect(owner.dofs.lower)...)
	}
	return out
}

// UpperBounds returns upper bounds aligned with X.
func (o *Optimizable) UpperBounds() []float64 {
	var out []float64
	for _, owner := range o.dofOwners() {
		out = append(out, owner.dofs.freeSelect(owner.dofs.upper)...)
	}
	return out
}

// Dofs returns the local dof container of this node.
func (o *Optimizable) Dofs() *Dofs {
	return o.dofs
}

// LocalSize returns the number of local dofs, fixed ones included.
func (o *Optimizable) LocalSize() int {
	return len(o.dofs.x)
}

// FullX returns a copy of all local dofs, fixed ones included.
func (o *Optimizable) FullX() []float64 {
	return append([]float64(nil), o.dofs.x...)
}

// LocalX returns the free local dofs.
func (o *Optimizable) LocalX() []float64 {
	return o.dofs.FreeX()
}

// SetLocalX sets the free local dofs.
func (o *Optimizable) SetLocalX(x []float64) error {
	if len(x) != o.dofs.FreeSize() {
		return fmt.Errorf("%w: %s has %d free dofs, got %d", ErrDimensionMismatch, o.name, o.dofs.FreeSize(), len(x))
	}
	if o.dofs.setFree(x) {
		o.Invalidate()
	}
	return nil
}

// SetFullX sets every local dof, fixed ones included.
func (o *Optimizable) SetFullX(x []float64) error {
	if len(x) != len(o.dofs.x) {
		return fmt.Errorf("%w: %s has %d dofs, got %d", ErrDimensionMismatch, o.name, len(o.dofs.x), len(x))
	}
	copy(o.dofs.x, x)
	o.Invalidate()
	return nil
}

// Get returns the value of a local dof by name.
func (o *Optimizable) Get(name string) (float64, error) {
	i, err := o.dofs.index(name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", o.name, err)
	}
	return o.dofs.x[i], nil
}

// Set assigns a local dof by name, fixed or free.
func (o *Optimizable) Set(name string, v float64) error {
	i, err := o.dofs.index(name)
	if err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}
	if o.dofs.x[i] != v {
		o.dofs.x[i] = v
		o.Invalidate()
	}
	return nil
}

// Fix marks a local dof as fixed, removing it from X.
func (o *Optimizable) Fix(name string) error {
	return o.setFreeByName(name, false)
}

// Unfix marks a local dof as free.
func (o *Optimizable) Unfix(name string) error {
	return o.setFreeByName(name, true)
}

// FixIndex fixes the local dof at position i.
func (o *Optimizable) FixIndex(i int) error {
	if i < 0 || i >= len(o.dofs.x) {
		return fmt.Errorf("%s: %w: index %d out of range [0,%d)", o.name, ErrDofNotFound, i, len(o.dofs.x))
	}
	o.dofs.free[i] = false
	return nil
}

// FixAll fixes every local dof.
func (o *Optimizable) FixAll() {
	for i := range o.dofs.free {
		o.dofs.free[i] = false
	}
}

// UnfixAll frees every local dof.
func (o *Optimizable) UnfixAll() {
	for i := range o.dofs.free {
		o.dofs.free[i] = true
	}
}

func (o *Optimizable) setFreeByName(name string, free bool) error {
	i, err := o.dofs.index(name)
	if err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}
	o.dofs.free[i] = free
	return nil
}

// String returns the node name.
func (o *Optimizable) String() string {
	return o.name
}
