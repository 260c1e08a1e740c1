package optimizable

import "fmt"

// Derivative is a gradient stored sparsely by node: each entry is a dense
// vector over the free local dofs of one node, sized when it was inserted.
//
// Derivatives are produced by VJPs and combined by summation, which is how
// contributions reaching a shared node along several paths are accumulated.
// A dense vector over the whole graph is only formed by Flatten.
//
// The zero value is an empty derivative ready to use.
type Derivative struct {
	grads map[*Optimizable][]float64
}

// Of builds a single-node derivative from a vector over all local dofs of
// node (fixed ones included). Entries at fixed positions are dropped.
// Nodes without free dofs yield an empty derivative.
func Of(node Node, full []float64) Derivative {
	o := node.Opt()
	free := o.dofs.project(full)
	if len(free) == 0 {
		return Derivative{}
	}
	return Derivative{grads: map[*Optimizable][]float64{o: free}}
}

// Len returns the number of nodes carrying a gradient.
func (d Derivative) Len() int {
	return len(d.grads)
}

// Get returns the gradient over the free local dofs of node, or nil.
func (d Derivative) Get(node Node) []float64 {
	return d.grads[node.Opt()]
}

// Add returns the key-wise sum of d and other. Neither operand is modified.
func (d Derivative) Add(other Derivative) Derivative {
	out := Derivative{grads: make(map[*Optimizable][]float64, len(d.grads)+len(other.grads))}
	for k, v := range d.grads {
		out.grads[k] = append([]float64(nil), v...)
	}
	out.AddInPlace(other)
	return out
}

// AddInPlace accumulates other into d, inserting missing nodes.
func (d *Derivative) AddInPlace(other Derivative) {
	if len(other.grads) == 0 {
		return
	}
	if d.grads == nil {
		d.grads = make(map[*Optimizable][]float64, len(other.grads))
	}
	for k, v := range other.grads {
		existing, ok := d.grads[k]
		if !ok {
			d.grads[k] = append([]float64(nil), v...)
			continue
		}
		if len(existing) != len(v) {
			panic(fmt.Sprintf("derivative: %s has gradients of length %d and %d", k.name, len(existing), len(v)))
		}
		for i := range v {
			existing[i] += v[i]
		}
	}
}

// Scale returns k·d.
func (d Derivative) Scale(k float64) Derivative {
	out := Derivative{grads: make(map[*Optimizable][]float64, len(d.grads))}
	for node, v := range d.grads {
		s := make([]float64, len(v))
		for i := range v {
			s[i] = k * v[i]
		}
		out.grads[node] = s
	}
	return out
}

// Flatten materializes the gradient aligned with root.X(). Nodes without an
// entry contribute zeros; entries for nodes outside root's graph are ignored.
func (d Derivative) Flatten(root Node) []float64 {
	owners := root.Opt().dofOwners()
	out := make([]float64, 0, root.Opt().DofSize())
	for _, owner := range owners {
		n := owner.dofs.FreeSize()
		g, ok := d.grads[owner]
		if !ok {
			out = append(out, make([]float64, n)...)
			continue
		}
		if len(g) != n {
			panic(fmt.Sprintf("derivative: %s gradient has %d entries for %d free dofs (fixed/unfixed after evaluation?)", owner.name, len(g), n))
		}
		out = append(out, g...)
	}
	return out
}
