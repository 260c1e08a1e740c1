package serialization

import (
	"fmt"
	"time"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// OwnerState is the full local dof state of one node.
type OwnerState struct {
	Name     string
	DofNames []string
	Values   []float64
	Free     []bool
}

// Snapshot is the dof state of every owner reachable from a root, in graph
// order, plus run bookkeeping.
type Snapshot struct {
	Owners    []OwnerState
	Objective *float64
	RunID     string
	Metadata  map[string]string
	CreatedAt time.Time
}

// owners returns root's ancestors and root itself that own at least one dof.
func owners(root optimizable.Node) []*optimizable.Optimizable {
	o := root.Opt()
	all := append(o.Ancestors(), o)
	out := all[:0]
	for _, n := range all {
		if n.LocalSize() > 0 {
			out = append(out, n)
		}
	}
	return out
}

// Capture records the dofs of root's graph, fixed ones included.
func Capture(root optimizable.Node) *Snapshot {
	nodes := owners(root)
	s := &Snapshot{
		Owners:    make([]OwnerState, len(nodes)),
		CreatedAt: time.Now().UTC(),
	}
	for i, n := range nodes {
		d := n.Dofs()
		free := make([]bool, n.LocalSize())
		for k := range free {
			free[k] = d.IsFree(k)
		}
		s.Owners[i] = OwnerState{
			Name:     n.Name(),
			DofNames: d.Names(),
			Values:   n.FullX(),
			Free:     free,
		}
	}
	return s
}

// Size returns the total number of recorded dofs.
func (s *Snapshot) Size() int {
	n := 0
	for _, o := range s.Owners {
		n += len(o.Values)
	}
	return n
}

// Apply restores the snapshot into root's graph.
//
// Owners are matched by position in graph order, so a snapshot can be
// applied to a freshly built copy of the same problem whose node names
// carry different counters. Each owner's dof names must match exactly.
// Values and free flags are both restored.
func (s *Snapshot) Apply(root optimizable.Node) error {
	nodes := owners(root)
	if len(nodes) != len(s.Owners) {
		return fmt.Errorf("%w: snapshot has %d owners, graph has %d",
			ErrGraphMismatch, len(s.Owners), len(nodes))
	}
	for i, n := range nodes {
		st := s.Owners[i]
		names := n.Dofs().Names()
		if len(names) != len(st.DofNames) || len(st.Values) != len(names) || len(st.Free) != len(names) {
			return fmt.Errorf("%w: owner %d (%s, saved as %s) has %d dofs, snapshot %d",
				ErrGraphMismatch, i, n.Name(), st.Name, len(names), len(st.DofNames))
		}
		for k, name := range names {
			if st.DofNames[k] != name {
				return fmt.Errorf("%w: owner %d (%s) dof %d is %q, snapshot has %q",
					ErrGraphMismatch, i, n.Name(), k, name, st.DofNames[k])
			}
		}
	}

	for i, n := range nodes {
		st := s.Owners[i]
		if err := n.SetFullX(st.Values); err != nil {
			return err
		}
		for k, name := range st.DofNames {
			var err error
			if st.Free[k] {
				err = n.Unfix(name)
			} else {
				err = n.Fix(name)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
