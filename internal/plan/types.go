// Package plan turns a set of selected comparison results into a
// dependency-respecting execution plan: layered batches of
// create/update items, isolated circular edges for a deferred second
// pass, and deletions scheduled after everything else.
package plan

import (
	"fmt"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
	"github.com/ivseb/strapi-sync-wizard/internal/links"
)

// Direction is the operator decision for one selected document.
type Direction string

const (
	ToCreate Direction = "TO_CREATE"
	ToUpdate Direction = "TO_UPDATE"
	ToDelete Direction = "TO_DELETE"
)

// Selection is one operator decision: sync this document of this
// content type in this direction.
type Selection struct {
	TableName  string    `json:"tableName"`
	DocumentID string    `json:"documentId"`
	Direction  Direction `json:"direction"`
}

// Item pairs a selection with its comparison entry and the links
// extracted from its source record.
type Item struct {
	Selection Selection
	Result    compare.Result
	Links     []links.LinkRef
}

// Key returns the item's graph node key.
func (it Item) Key() NodeKey {
	return NodeKey{Table: it.Selection.TableName, DocumentID: it.Selection.DocumentID}
}

// NodeKey identifies a node of the dependency graph.
type NodeKey struct {
	Table      string
	DocumentID string
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s/%s", k.Table, k.DocumentID)
}

// Batch is a set of items with no unresolved same-batch dependency;
// items within a batch are independent by construction.
type Batch []Item

// CircularDependencyEdge is an edge removed from normal scheduling
// because it participates in a cycle. Its relation value is applied in
// the executor's second pass instead of the first-pass payload.
type CircularDependencyEdge struct {
	FromTable      string        `json:"fromTable"`
	FromDocumentID string        `json:"fromDocumentId"`
	ToTable        string        `json:"toTable"`
	ToDocumentID   string        `json:"toDocumentId"`
	Via            links.LinkRef `json:"viaLink"`
}

// MissingDependency records a link whose target is neither selected
// nor known to exist on the target instance. Non-fatal: the edge is
// dropped and the relation omitted from the payload.
type MissingDependency struct {
	FromTable      string        `json:"fromTable"`
	FromDocumentID string        `json:"fromDocumentId"`
	Via            links.LinkRef `json:"viaLink"`
}

// ExecutionPlan is the scheduler output consumed by the executor.
type ExecutionPlan struct {
	Batches       []Batch
	Deletions     Batch
	CircularEdges []CircularDependencyEdge
	Missing       []MissingDependency
}

// CircularFields returns, per item key, the set of dotted field paths
// whose links must be excluded from the first-pass payload.
func (p *ExecutionPlan) CircularFields() map[NodeKey]map[string]bool {
	out := make(map[NodeKey]map[string]bool)
	for _, e := range p.CircularEdges {
		key := NodeKey{Table: e.FromTable, DocumentID: e.FromDocumentID}
		if out[key] == nil {
			out[key] = make(map[string]bool)
		}
		out[key][e.Via.Field] = true
	}
	return out
}
