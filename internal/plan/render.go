package plan

import (
	"fmt"
	"strings"
)

// Render produces the stable text form of a plan, used by the CLI and
// asserted by golden tests. Renderings of the same plan are identical
// byte-for-byte.
func Render(p *ExecutionPlan) string {
	var b strings.Builder

	for i, batch := range p.Batches {
		fmt.Fprintf(&b, "batch %d:\n", i+1)
		for _, it := range batch {
			fmt.Fprintf(&b, "  %s %s\n", it.Key(), it.Selection.Direction)
		}
	}
	if len(p.Deletions) > 0 {
		b.WriteString("deletions:\n")
		for _, it := range p.Deletions {
			fmt.Fprintf(&b, "  %s %s\n", it.Key(), it.Selection.Direction)
		}
	}
	if len(p.CircularEdges) > 0 {
		b.WriteString("circular edges:\n")
		for _, e := range p.CircularEdges {
			fmt.Fprintf(&b, "  %s/%s -[%s]-> %s/%s\n",
				e.FromTable, e.FromDocumentID, e.Via.Field, e.ToTable, e.ToDocumentID)
		}
	}
	if len(p.Missing) > 0 {
		b.WriteString("missing dependencies:\n")
		for _, m := range p.Missing {
			fmt.Fprintf(&b, "  %s/%s -[%s]-> %s/%s (unresolved)\n",
				m.FromTable, m.FromDocumentID, m.Via.Field, m.Via.TargetTable, m.Via.TargetDocumentID)
		}
	}

	return b.String()
}
