package hcbnlib

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Model holds a poset over p events together with the rate parameters
// currently being estimated or used for simulation. It is built once
// from an edge list and reused, read-only, across every sample drawn or
// observation processed against it.
type Model struct {
	poset *simple.DirectedGraph

	// topoOrder[i] is the vertex occupying position i in the topological
	// order; position[v] is the inverse mapping.
	topoOrder []int
	position  []int

	cycle bool

	// reductionFlag mirrors the source's flag: true means the poset is
	// already known to be transitively reduced and TransitiveReduction is
	// a no-op.
	reductionFlag bool

	children [][]int

	lambda  []float64
	lambdaS float64
	epsilon float64
	llhood  float64

	size int
}

// NewModel builds a Model over p vertices (0..p-1) from a cover-relation
// edge list. lambdaS is the sampling-time rate. The returned Model has
// not yet been checked for acyclicity or topologically sorted; call
// HasCycles then TopologicalSort (or Prepare, which does both) before
// using it for simulation or inference.
func NewModel(edges [][2]int, p int, lambdaS float64) *Model {
	g := simple.NewDirectedGraph()
	for v := 0; v < p; v++ {
		g.AddNode(simple.Node(int64(v)))
	}
	for _, e := range edges {
		g.SetEdge(simple.Edge{F: simple.Node(int64(e[0])), T: simple.Node(int64(e[1]))})
	}

	return &Model{
		poset:   g,
		lambda:  make([]float64, p),
		lambdaS: lambdaS,
		size:    p,
	}
}

// Prepare runs the acyclicity check and topological sort required before
// a Model can be used. It returns a NotAcyclic error if the poset
// contains a directed cycle.
func (m *Model) Prepare() error {
	if err := m.HasCycles(); err != nil {
		return err
	}
	m.TopologicalSort()
	m.buildChildren()
	return nil
}

// HasCycles records whether the poset is acyclic, returning a NotAcyclic
// error if a cycle is found. Must be run before any other poset
// operation that assumes acyclicity.
func (m *Model) HasCycles() error {
	if _, err := topo.Sort(graph.Directed(m.poset)); err != nil {
		m.cycle = true
		return newErr(NotAcyclic, "poset contains a cycle: %v", err)
	}
	m.cycle = false
	return nil
}

// Cyclic reports the last result recorded by HasCycles.
func (m *Model) Cyclic() bool {
	return m.cycle
}

// TopologicalSort computes and stores a total order consistent with
// every cover relation u -> v (position(u) < position(v)). The order
// among nodes that are not related by the poset is whatever gonum's
// topo.Sort returns; callers must not depend on any tie-breaking rule.
func (m *Model) TopologicalSort() {
	nodes, err := topo.Sort(graph.Directed(m.poset))
	if err != nil {
		// Acyclicity must have been verified by the caller already.
		panic("TopologicalSort called on a cyclic poset")
	}

	m.topoOrder = make([]int, len(nodes))
	m.position = make([]int, len(nodes))
	for i, n := range nodes {
		v := int(n.ID())
		m.topoOrder[i] = v
		m.position[v] = i
	}
}

// buildChildren lazily materializes the direct-successor sets used
// throughout simulation and reduction.
func (m *Model) buildChildren() {
	m.children = make([][]int, m.size)
	for v := 0; v < m.size; v++ {
		it := m.poset.From(int64(v))
		for it.Next() {
			m.children[v] = append(m.children[v], int(it.Node().ID()))
		}
	}
}

// GetChildren returns, for each vertex, its set of direct successors.
func (m *Model) GetChildren() [][]int {
	if m.children == nil {
		m.buildChildren()
	}
	return m.children
}

// parents returns the direct predecessors of v.
func (m *Model) parents(v int) []int {
	it := m.poset.To(int64(v))
	var ps []int
	for it.Next() {
		ps = append(ps, int(it.Node().ID()))
	}
	return ps
}

// GetSuccessors returns the full transitive closure downstream of v.
func (m *Model) GetSuccessors(v int) map[int]bool {
	seen := make(map[int]bool)
	stack := append([]int(nil), m.GetChildren()[v]...)
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[u] {
			continue
		}
		seen[u] = true
		stack = append(stack, m.GetChildren()[u]...)
	}
	return seen
}

// TransitiveReduction removes every cover-relation edge u -> v for which
// a longer path u -> ... -> v also exists, producing the unique minimal
// edge set with the same reachability relation. It sets reductionFlag,
// so every later call on the same model is a no-op.
func (m *Model) TransitiveReduction() {
	if m.reductionFlag {
		return
	}
	if m.topoOrder == nil {
		m.TopologicalSort()
	}
	children := m.GetChildren()

	// reach[v] = set of vertices reachable from v (excluding v itself),
	// computed in reverse topological order so that every child's
	// reachable set is already known when v is processed.
	reach := make([]map[int]bool, m.size)
	for i := len(m.topoOrder) - 1; i >= 0; i-- {
		v := m.topoOrder[i]
		rv := make(map[int]bool)
		for _, c := range children[v] {
			rv[c] = true
			for d := range reach[c] {
				rv[d] = true
			}
		}
		reach[v] = rv
	}

	var redundant [][2]int
	for v := 0; v < m.size; v++ {
		for _, c := range children[v] {
			for _, other := range children[v] {
				if other == c {
					continue
				}
				if reach[other][c] {
					redundant = append(redundant, [2]int{v, c})
					break
				}
			}
		}
	}

	for _, e := range redundant {
		m.poset.RemoveEdge(int64(e[0]), int64(e[1]))
	}

	m.reductionFlag = true
	m.buildChildren()
}

// Size returns the number of events (p) in the model.
func (m *Model) Size() int {
	return m.size
}

// Lambda returns a copy of the current per-event rate vector.
func (m *Model) Lambda() []float64 {
	out := make([]float64, len(m.lambda))
	copy(out, m.lambda)
	return out
}

// LambdaAt returns the rate for a single event.
func (m *Model) LambdaAt(idx int) float64 {
	return m.lambda[idx]
}

// LambdaS returns the sampling-time rate.
func (m *Model) LambdaS() float64 {
	return m.lambdaS
}

// Epsilon returns the current observation error rate.
func (m *Model) Epsilon() float64 {
	return m.epsilon
}

// Llhood returns the last averaged log-likelihood recorded by MCEMHcbn.
func (m *Model) Llhood() float64 {
	return m.llhood
}

// SetLambda installs lambda as the model's rate vector. All entries must
// be strictly positive.
func (m *Model) SetLambda(lambda []float64) error {
	if len(lambda) != m.size {
		return newErr(ShapeMismatch, "lambda has length %d, want %d", len(lambda), m.size)
	}
	for j, v := range lambda {
		if v <= 0 {
			return newErr(OutOfRange, "lambda[%d] = %g is not positive", j, v)
		}
	}
	copy(m.lambda, lambda)
	return nil
}

// SetLambdaClamped installs lambda after clamping every non-finite or
// over-large entry to maxLambda, the same clamp mStep applies to its
// own lambda update.
func (m *Model) SetLambdaClamped(lambda []float64, maxLambda float64) {
	for j, v := range lambda {
		if isNonFinite(v) || v > maxLambda {
			v = maxLambda
		}
		m.lambda[j] = v
	}
}

// SetEpsilon installs the observation error rate. Must lie in [0, 1].
func (m *Model) SetEpsilon(eps float64) error {
	if eps < 0 || eps > 1 {
		return newErr(OutOfRange, "epsilon = %g is not in [0, 1]", eps)
	}
	m.epsilon = eps
	return nil
}

// SetLlhood records the last averaged log-likelihood.
func (m *Model) SetLlhood(llhood float64) {
	m.llhood = llhood
}

func isNonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
