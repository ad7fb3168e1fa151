package links

import (
	"strconv"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// Extract walks a record's raw tree guided by schema metadata and
// yields one LinkRef per related identifier. Attributes are visited in
// schema declaration order and relation arrays in element order, so
// output order is deterministic given the inputs. Non-relation fields
// are ignored.
func Extract(rec compare.Record, ct schema.ContentType, components map[string]schema.Component) []LinkRef {
	w := walker{
		sourceID:    rec.ID,
		sourceDocID: rec.DocumentID,
		components:  components,
	}
	w.walkAttributes(rec.Raw, ct.Attributes, "", 0)
	return w.out
}

type walker struct {
	sourceID    int64
	sourceDocID string
	components  map[string]schema.Component
	out         []LinkRef
}

// walkAttributes visits one nesting level. prefix is the dotted path
// of the enclosing component field ("" at top level); linkID is the id
// of the enclosing component element (0 at top level).
func (w *walker) walkAttributes(obj content.Object, attrs []schema.Attribute, prefix string, linkID int64) {
	for _, attr := range attrs {
		raw, ok := obj[attr.Name]
		if !ok {
			continue
		}
		path := attr.Name
		if prefix != "" {
			path = prefix + "." + attr.Name
		}

		switch attr.Type {
		case schema.TypeRelation:
			w.emitTargets(raw, path, attr.Target, linkID)
		case schema.TypeMedia:
			w.emitTargets(raw, path, compare.FilesContentType, linkID)
		case schema.TypeComponent:
			w.walkComponent(raw, attr, path)
		case schema.TypeDynamicZone:
			w.walkDynamicZone(raw, path)
		}
	}
}

// emitTargets handles the relation value shapes the API produces: a
// bare object, an array of objects, or either wrapped in {"data": ...}.
func (w *walker) emitTargets(v content.Value, path, table string, linkID int64) {
	v = unwrapData(v)

	switch val := v.(type) {
	case content.Object:
		w.emit(val, path, table, 0, linkID)
	case content.Array:
		for i, elem := range val {
			target, ok := unwrapData(elem).(content.Object)
			if !ok {
				continue
			}
			w.emit(target, path, table, float64(i+1), linkID)
		}
	}
}

func (w *walker) emit(target content.Object, path, table string, order float64, linkID int64) {
	ref := LinkRef{
		SourceID:         w.sourceID,
		SourceDocumentID: w.sourceDocID,
		Field:            path,
		TargetTable:      table,
		TargetID:         objectID(target),
		TargetDocumentID: objectDocumentID(target),
		Order:            order,
		LinkID:           linkID,
	}
	if ref.TargetID == 0 && ref.TargetDocumentID == "" {
		return
	}
	w.out = append(w.out, ref)
}

func (w *walker) walkComponent(v content.Value, attr schema.Attribute, path string) {
	comp, ok := w.components[attr.Component]
	if !ok {
		return
	}

	if attr.Repeatable {
		arr, ok := v.(content.Array)
		if !ok {
			return
		}
		for _, elem := range arr {
			obj, ok := elem.(content.Object)
			if !ok {
				continue
			}
			// Key nested links off the element's own id so fan-out can
			// be re-attached after the element list is rewritten.
			w.walkAttributes(obj, comp.Attributes, path, objectID(obj))
		}
		return
	}

	obj, ok := v.(content.Object)
	if !ok {
		return
	}
	w.walkAttributes(obj, comp.Attributes, path, 0)
}

// walkDynamicZone visits a polymorphic component array. Each element
// names its own component via "__component".
func (w *walker) walkDynamicZone(v content.Value, path string) {
	arr, ok := v.(content.Array)
	if !ok {
		return
	}
	for _, elem := range arr {
		obj, ok := elem.(content.Object)
		if !ok {
			continue
		}
		uid, ok := obj["__component"].(content.String)
		if !ok {
			continue
		}
		comp, ok := w.components[string(uid)]
		if !ok {
			continue
		}
		w.walkAttributes(obj, comp.Attributes, path, objectID(obj))
	}
}

// unwrapData strips the REST envelope {"data": ...} when present.
func unwrapData(v content.Value) content.Value {
	if obj, ok := v.(content.Object); ok {
		if inner, ok := obj["data"]; ok {
			return inner
		}
	}
	return v
}

func objectID(obj content.Object) int64 {
	n, ok := obj["id"].(content.Number)
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func objectDocumentID(obj content.Object) string {
	s, ok := obj["documentId"].(content.String)
	if !ok {
		return ""
	}
	return string(s)
}
