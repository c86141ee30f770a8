package hcbnlib

// AdjacencyMatrixToEdges converts a p x p {0,1} poset adjacency matrix
// (entry (u, v) == 1 iff edge u -> v exists) into an edge list, the
// format NewModel expects. Ports adjacency_mat2list.
func AdjacencyMatrixToEdges(adj [][]int) ([][2]int, error) {
	p := len(adj)
	for i, row := range adj {
		if len(row) != p {
			return nil, newErr(ShapeMismatch, "poset row %d has length %d, want %d (not square)", i, len(row), p)
		}
	}

	var edges [][2]int
	for u := 0; u < p; u++ {
		for v := 0; v < p; v++ {
			if u == v {
				if adj[u][v] != 0 {
					return nil, newErr(ShapeMismatch, "poset has a non-zero diagonal entry at (%d, %d)", u, v)
				}
				continue
			}
			if adj[u][v] != 0 {
				edges = append(edges, [2]int{u, v})
			}
		}
	}
	return edges, nil
}

// EdgesToAdjacencyMatrix converts a Model's poset back into a p x p
// {0,1} adjacency matrix. Ports adjacency_list2mat.
func EdgesToAdjacencyMatrix(m *Model) [][]int {
	p := m.Size()
	adj := make([][]int, p)
	for u := 0; u < p; u++ {
		adj[u] = make([]int, p)
	}
	children := m.GetChildren()
	for u, cs := range children {
		for _, v := range cs {
			adj[u][v] = 1
		}
	}
	return adj
}

// BuildModel is the shared helper used by every external entry point
// that receives a raw poset adjacency matrix: it validates shapes,
// constructs the Model, installs lambda/eps, and runs Prepare (the
// acyclicity check + topological sort).
func BuildModel(posetAdj [][]int, lambda []float64, eps, lambdaS float64) (*Model, error) {
	edges, err := AdjacencyMatrixToEdges(posetAdj)
	if err != nil {
		return nil, err
	}
	p := len(posetAdj)
	if len(lambda) != p {
		return nil, newErr(ShapeMismatch, "lambda has length %d, want %d", len(lambda), p)
	}

	m := NewModel(edges, p, lambdaS)
	if err := m.SetLambda(lambda); err != nil {
		return nil, err
	}
	if err := m.SetEpsilon(eps); err != nil {
		return nil, err
	}
	if err := m.Prepare(); err != nil {
		return nil, err
	}
	return m, nil
}

// IsCompatible reports whether genotype is consistent with model's
// poset: no event may be "on" while an ancestor required to precede it
// is "off". Ports is_compatible.
func IsCompatible(genotype []bool, m *Model) bool {
	for v := 0; v < m.Size(); v++ {
		if !genotype[v] {
			continue
		}
		for _, u := range m.parents(v) {
			if !genotype[u] {
				return false
			}
		}
	}
	return true
}

// CountCompatibleObservations counts the rows of obs that are compatible
// with model's poset. Ports num_compatible_observations.
func CountCompatibleObservations(obs [][]bool, m *Model) int {
	var n int
	for _, g := range obs {
		if IsCompatible(g, m) {
			n++
		}
	}
	return n
}

// CountIncompatibleEvents counts, within a single genotype, the number
// of events that are "on" despite at least one direct parent being
// "off". Only direct parents are checked, not more distant ancestors.
// Ports num_incompatible_events.
func CountIncompatibleEvents(genotype []bool, m *Model) int {
	var n int
	for v := 0; v < m.Size(); v++ {
		if !genotype[v] {
			continue
		}
		for _, u := range m.parents(v) {
			if !genotype[u] {
				n++
				break
			}
		}
	}
	return n
}
