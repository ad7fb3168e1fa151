// Package links extracts typed cross-record references from raw
// content trees, guided by content-type schema metadata.
package links

// LinkRef is one relation attribute value found inside a record: a
// reference from (source record, dotted field path) to a record of
// TargetTable. Order preserves the position inside repeatable
// relations; LinkID is the id of the enclosing component element for
// links found inside repeatable components.
//
// LinkID deliberately carries the source element's own id, not its
// array index: the element list may be rewritten on the target, and
// the array index can legitimately differ between instances while the
// element identity does not.
type LinkRef struct {
	SourceID         int64   `json:"sourceId"`
	SourceDocumentID string  `json:"sourceDocumentId"`
	Field            string  `json:"field"` // dotted path, e.g. "seo.image"
	TargetTable      string  `json:"targetTable"`
	TargetID         int64   `json:"targetId,omitempty"`
	TargetDocumentID string  `json:"targetDocumentId,omitempty"`
	Order            float64 `json:"order,omitempty"`
	LinkID           int64   `json:"linkId,omitempty"`
}
