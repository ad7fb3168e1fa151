package run

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/links"
	"github.com/ivseb/strapi-sync-wizard/internal/plan"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// payloadKey locates the links belonging to one relation value: the
// dotted field path plus the id of the enclosing component element
// (0 at top level). Keying by element id, not array index, re-attaches
// relation fan-out to the right element even after the element list is
// rewritten.
type payloadKey struct {
	path   string
	linkID int64
}

// buildPayload assembles the target write payload for one item from
// its source record: technical fields dropped, keys resolved to the
// authoritative schema names, every non-circular link replaced by a
// relation-set operation with target-side identifiers, circular links
// omitted for the second pass. Links in the missing set point at
// documents that exist on neither side; those relations are dropped
// entirely rather than written with an identifier the target cannot
// resolve.
//
// Returns the payload and the links that fell back to the source
// identifier because no mapping existed (reported, not fatal).
func buildPayload(
	item plan.Item,
	resolver *schema.Resolver,
	components map[string]schema.Component,
	circular map[string]bool,
	missing map[links.LinkRef]bool,
	resolve func(table, doc string) (string, bool),
) (content.Object, []links.LinkRef) {
	b := &payloadBuilder{
		components: components,
		circular:   circular,
		resolve:    resolve,
		links:      make(map[payloadKey][]links.LinkRef),
	}
	for _, ref := range item.Links {
		if missing[ref] {
			continue
		}
		key := payloadKey{ref.Field, ref.LinkID}
		b.links[key] = append(b.links[key], ref)
	}

	payload := b.object(item.Result.Source.Raw, resolver, "", 0)
	return payload, b.unmapped
}

type payloadBuilder struct {
	components map[string]schema.Component
	circular   map[string]bool
	resolve    func(table, doc string) (string, bool)
	links      map[payloadKey][]links.LinkRef
	unmapped   []links.LinkRef
}

func (b *payloadBuilder) object(obj content.Object, resolver *schema.Resolver, prefix string, linkID int64) content.Object {
	out := make(content.Object, len(obj))

	for _, key := range obj.SortedKeys() {
		name := resolver.Field(key)
		if name == "id" || name == "documentId" || compare.IsTechnicalField(name) {
			continue
		}

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		attr, known := resolver.Attribute(name)
		if !known {
			out[name] = obj[key]
			continue
		}

		switch attr.Type {
		case schema.TypeRelation, schema.TypeMedia:
			if b.circular[path] {
				continue
			}
			if set, ok := b.relationSet(path, linkID); ok {
				out[name] = set
			}
		case schema.TypeComponent:
			if v := b.component(obj[key], attr, resolver.Sub(name), path); v != nil {
				out[name] = v
			}
		case schema.TypeDynamicZone:
			if v := b.dynamicZone(obj[key], path); v != nil {
				out[name] = v
			}
		default:
			out[name] = obj[key]
		}
	}

	return out
}

// relationSet builds the relation-"set" operation for one field. The
// links were extracted in source order; Order re-asserts it after the
// grouping map. Unmapped targets fall back to the source documentId
// and are reported to the caller.
func (b *payloadBuilder) relationSet(path string, linkID int64) (content.Object, bool) {
	refs := b.links[payloadKey{path, linkID}]
	if len(refs) == 0 {
		return nil, false
	}
	sorted := make([]links.LinkRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	set := make(content.Array, 0, len(sorted))
	for _, ref := range sorted {
		doc, ok := b.resolve(ref.TargetTable, ref.TargetDocumentID)
		if !ok {
			doc = ref.TargetDocumentID
			b.unmapped = append(b.unmapped, ref)
		}
		set = append(set, content.Object{"documentId": content.String(doc)})
	}
	return content.Object{"set": set}, true
}

func (b *payloadBuilder) component(v content.Value, attr schema.Attribute, sub *schema.Resolver, path string) content.Value {
	if attr.Repeatable {
		arr, ok := v.(content.Array)
		if !ok {
			return nil
		}
		out := make(content.Array, 0, len(arr))
		for _, elem := range arr {
			obj, ok := elem.(content.Object)
			if !ok {
				continue
			}
			out = append(out, b.object(obj, sub, path, elementID(obj)))
		}
		return out
	}

	obj, ok := v.(content.Object)
	if !ok {
		return nil
	}
	return b.object(obj, sub, path, 0)
}

// dynamicZone rebuilds a polymorphic component array, preserving each
// element's "__component" discriminator.
func (b *payloadBuilder) dynamicZone(v content.Value, path string) content.Value {
	arr, ok := v.(content.Array)
	if !ok {
		return nil
	}

	out := make(content.Array, 0, len(arr))
	for _, elem := range arr {
		obj, ok := elem.(content.Object)
		if !ok {
			continue
		}
		uid, ok := obj["__component"].(content.String)
		if !ok {
			continue
		}
		comp, ok := b.components[string(uid)]
		if !ok {
			continue
		}
		sub := schema.BuildResolver(schema.ContentType{Attributes: comp.Attributes}, b.components)
		rebuilt := b.object(obj, sub, path, elementID(obj))
		rebuilt["__component"] = uid
		out = append(out, rebuilt)
	}
	return out
}

// secondPassPayload builds the follow-up update for one item's
// deferred circular relations: only the relation fields, nested along
// their dotted paths.
func secondPassPayload(edges []plan.CircularDependencyEdge, resolve func(table, doc string) (string, bool)) content.Object {
	byField := make(map[string][]plan.CircularDependencyEdge)
	var fields []string
	for _, e := range edges {
		if _, seen := byField[e.Via.Field]; !seen {
			fields = append(fields, e.Via.Field)
		}
		byField[e.Via.Field] = append(byField[e.Via.Field], e)
	}
	sort.Strings(fields)

	payload := make(content.Object)
	for _, field := range fields {
		fieldEdges := byField[field]
		sort.SliceStable(fieldEdges, func(i, j int) bool {
			return fieldEdges[i].Via.Order < fieldEdges[j].Via.Order
		})

		set := make(content.Array, 0, len(fieldEdges))
		for _, e := range fieldEdges {
			doc, ok := resolve(e.ToTable, e.ToDocumentID)
			if !ok {
				doc = e.ToDocumentID
			}
			set = append(set, content.Object{"documentId": content.String(doc)})
		}
		insertAtPath(payload, field, content.Object{"set": set})
	}
	return payload
}

// insertAtPath places a value at a dotted path, creating intermediate
// objects as needed.
func insertAtPath(obj content.Object, path string, v content.Value) {
	cur := obj
	for {
		head, rest, found := strings.Cut(path, ".")
		if !found {
			cur[path] = v
			return
		}
		next, ok := cur[head].(content.Object)
		if !ok {
			next = make(content.Object)
			cur[head] = next
		}
		cur = next
		path = rest
	}
}

func elementID(obj content.Object) int64 {
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
