package plan

import (
	"fmt"
	"sort"
)

// Build computes the execution plan for the selected items.
//
// A node is (tableName, documentId) for every selected create/update
// item. An edge A -> B exists when one of A's links resolves to B and
// B is also selected. Links whose target is neither selected nor in
// existingTargets are recorded as missing dependencies and dropped.
// Every edge inside a strongly connected component is removed from
// scheduling and recorded as a CircularDependencyEdge; the remaining
// acyclic graph is layered with Kahn's algorithm. Deletions never
// enter the graph and are scheduled after all create/update batches.
//
// Deterministic: the same selection and comparison snapshot always
// produces the same plan.
func Build(items []Item, existingTargets map[NodeKey]bool) (*ExecutionPlan, error) {
	plan := &ExecutionPlan{}

	byKey := make(map[NodeKey]Item, len(items))
	var nodes []NodeKey
	for _, it := range items {
		key := it.Key()
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate selection for %s", key)
		}
		if it.Selection.Direction == ToDelete {
			plan.Deletions = append(plan.Deletions, it)
			continue
		}
		byKey[key] = it
		nodes = append(nodes, key)
	}
	sortKeys(nodes)
	sort.SliceStable(plan.Deletions, func(i, j int) bool {
		return plan.Deletions[i].Key().less(plan.Deletions[j].Key())
	})

	// Resolve links into edges. adj holds deduplicated adjacency for
	// the graph algorithms; edgeLinks keeps every LinkRef per edge so
	// cycle isolation can report each link individually.
	adj := make(map[NodeKey][]NodeKey, len(nodes))
	type edge struct{ from, to NodeKey }
	edgeSeen := make(map[edge]bool)

	for _, from := range nodes {
		it := byKey[from]
		for _, ref := range it.Links {
			to := NodeKey{Table: ref.TargetTable, DocumentID: ref.TargetDocumentID}
			if to == from {
				// A self-reference is a 1-cycle: the relation can only
				// point at the document once its own mapping exists.
				plan.CircularEdges = append(plan.CircularEdges, CircularDependencyEdge{
					FromTable:      from.Table,
					FromDocumentID: from.DocumentID,
					ToTable:        to.Table,
					ToDocumentID:   to.DocumentID,
					Via:            ref,
				})
				continue
			}
			if _, selected := byKey[to]; !selected {
				if !existingTargets[to] {
					plan.Missing = append(plan.Missing, MissingDependency{
						FromTable:      from.Table,
						FromDocumentID: from.DocumentID,
						Via:            ref,
					})
				}
				continue
			}
			e := edge{from, to}
			if !edgeSeen[e] {
				edgeSeen[e] = true
				adj[from] = append(adj[from], to)
			}
		}
	}
	for _, from := range nodes {
		sortKeys(adj[from])
	}

	// Isolate cycles: every link whose endpoints share a strongly
	// connected component becomes a CircularDependencyEdge and its
	// edge leaves the scheduling graph.
	comp := stronglyConnected(nodes, adj)
	circular := make(map[edge]bool)
	for _, from := range nodes {
		for _, to := range adj[from] {
			if comp[from] == comp[to] {
				circular[edge{from, to}] = true
			}
		}
	}
	for _, from := range nodes {
		it := byKey[from]
		for _, ref := range it.Links {
			to := NodeKey{Table: ref.TargetTable, DocumentID: ref.TargetDocumentID}
			if circular[edge{from, to}] {
				plan.CircularEdges = append(plan.CircularEdges, CircularDependencyEdge{
					FromTable:      from.Table,
					FromDocumentID: from.DocumentID,
					ToTable:        to.Table,
					ToDocumentID:   to.DocumentID,
					Via:            ref,
				})
			}
		}
	}

	// Kahn layering over the SCC condensation. Scheduling whole
	// components keeps all members of a cycle in the same batch even
	// when only some of them carry additional acyclic dependencies.
	members := make(map[int][]NodeKey)
	for _, key := range nodes {
		members[comp[key]] = append(members[comp[key]], key)
	}

	depCount := make(map[int]int)
	dependents := make(map[int]map[int]bool)
	for _, from := range nodes {
		for _, to := range adj[from] {
			cf, ct := comp[from], comp[to]
			if cf == ct {
				continue
			}
			if dependents[ct] == nil {
				dependents[ct] = make(map[int]bool)
			}
			if !dependents[ct][cf] {
				dependents[ct][cf] = true
				depCount[cf]++
			}
		}
	}

	var ready []int
	for id := range members {
		if depCount[id] == 0 {
			ready = append(ready, id)
		}
	}

	scheduled := 0
	for len(ready) > 0 {
		var keys []NodeKey
		for _, id := range ready {
			keys = append(keys, members[id]...)
		}
		sortKeys(keys)

		batch := make(Batch, 0, len(keys))
		for _, key := range keys {
			batch = append(batch, byKey[key])
			scheduled++
		}
		plan.Batches = append(plan.Batches, batch)

		var next []int
		for _, id := range ready {
			for dep := range dependents[id] {
				depCount[dep]--
				if depCount[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Ints(next)
		ready = next
	}

	// The condensation is acyclic by construction, so layering must
	// consume every node.
	if scheduled != len(nodes) {
		return nil, fmt.Errorf("scheduling left %d of %d items unplaced", len(nodes)-scheduled, len(nodes))
	}

	return plan, nil
}

func sortKeys(keys []NodeKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
}

func (k NodeKey) less(o NodeKey) bool {
	if k.Table != o.Table {
		return k.Table < o.Table
	}
	return k.DocumentID < o.DocumentID
}
