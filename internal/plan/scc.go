package plan

// stronglyConnected runs Tarjan's algorithm over the dependency graph
// and returns a component id per node. The implementation is iterative
// with an explicit stack: selections can be large and the graph shape
// is operator-controlled, so recursion depth is not bounded.
//
// Nodes and adjacency must be iterated in a deterministic order by the
// caller; given that, component ids are deterministic too.
func stronglyConnected(nodes []NodeKey, adj map[NodeKey][]NodeKey) map[NodeKey]int {
	index := make(map[NodeKey]int, len(nodes))
	lowlink := make(map[NodeKey]int, len(nodes))
	onStack := make(map[NodeKey]bool, len(nodes))
	comp := make(map[NodeKey]int, len(nodes))

	var stack []NodeKey
	next := 0
	compID := 0

	type frame struct {
		node NodeKey
		edge int // next adjacency index to visit
	}

	for _, root := range nodes {
		if _, seen := index[root]; seen {
			continue
		}

		frames := []frame{{node: root}}
		index[root] = next
		lowlink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			neighbors := adj[f.node]

			if f.edge < len(neighbors) {
				child := neighbors[f.edge]
				f.edge++

				if _, seen := index[child]; !seen {
					index[child] = next
					lowlink[child] = next
					next++
					stack = append(stack, child)
					onStack[child] = true
					frames = append(frames, frame{node: child})
				} else if onStack[child] {
					if index[child] < lowlink[f.node] {
						lowlink[f.node] = index[child]
					}
				}
				continue
			}

			// All neighbors visited: maybe pop a component, then
			// propagate the lowlink to the parent frame.
			if lowlink[f.node] == index[f.node] {
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					comp[top] = compID
					if top == f.node {
						break
					}
				}
				compID++
			}

			done := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[done] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[done]
				}
			}
		}
	}

	return comp
}
