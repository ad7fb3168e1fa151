package schema

import "strings"

// Resolver translates the loose key spellings found in exported JSON
// (snake_case, alternate casings) back to the authoritative field
// names of a content type, descending into nested components.
//
// Building a resolver is pure. Resolution is total: a key that maps to
// no known field falls back to heuristic snake→camel conversion and is
// never an error.
type Resolver struct {
	fields map[string]string    // normalized key -> canonical field name
	attrs  map[string]Attribute // canonical field name -> attribute
	subs   map[string]*Resolver // canonical field name -> component resolver
}

// BuildResolver constructs the resolver for a content type. The
// components map (uid -> Component) supplies nested sub-schemas;
// missing component uids simply resolve heuristically at that level.
func BuildResolver(ct ContentType, components map[string]Component) *Resolver {
	return buildResolver(ct.Attributes, components, make(map[string]*Resolver))
}

// buildResolver threads a memo keyed by component uid so that a
// component reached through several paths is built once, and schema
// graphs with repeated nesting terminate.
func buildResolver(attrs []Attribute, components map[string]Component, memo map[string]*Resolver) *Resolver {
	r := &Resolver{
		fields: make(map[string]string, len(attrs)),
		attrs:  make(map[string]Attribute, len(attrs)),
		subs:   make(map[string]*Resolver),
	}

	for _, a := range attrs {
		r.fields[normalizeKey(a.Name)] = a.Name
		r.attrs[a.Name] = a

		if a.Type != TypeComponent {
			continue
		}
		if sub, ok := memo[a.Component]; ok {
			r.subs[a.Name] = sub
			continue
		}
		comp, ok := components[a.Component]
		if !ok {
			continue
		}
		// Reserve the memo slot before recursing so self-referencing
		// component graphs terminate.
		sub := &Resolver{
			fields: make(map[string]string),
			attrs:  make(map[string]Attribute),
			subs:   make(map[string]*Resolver),
		}
		memo[a.Component] = sub
		built := buildResolver(comp.Attributes, components, memo)
		*sub = *built
		memo[a.Component] = sub
		r.subs[a.Name] = sub
	}

	return r
}

// Field resolves a single key to its canonical field name.
// Unknown keys convert snake_case to camelCase as a fallback.
func (r *Resolver) Field(key string) string {
	if r == nil {
		return SnakeToCamel(key)
	}
	if name, ok := r.fields[normalizeKey(key)]; ok {
		return name
	}
	return SnakeToCamel(key)
}

// Path resolves a dotted path, switching to the component sub-resolver
// while descending and back when ascending. Segments inside unknown
// components resolve heuristically.
func (r *Resolver) Path(path string) string {
	segments := strings.Split(path, ".")
	resolved := make([]string, len(segments))

	cur := r
	for i, seg := range segments {
		name := cur.Field(seg)
		resolved[i] = name
		cur = cur.Sub(name)
	}
	return strings.Join(resolved, ".")
}

// Sub returns the resolver for a nested component field, or nil when
// the field is not a known component. A nil Resolver still resolves
// (heuristically), so callers can descend unconditionally.
func (r *Resolver) Sub(field string) *Resolver {
	if r == nil {
		return nil
	}
	return r.subs[field]
}

// Attribute returns the schema attribute for a canonical field name.
func (r *Resolver) Attribute(name string) (Attribute, bool) {
	if r == nil {
		return Attribute{}, false
	}
	a, ok := r.attrs[name]
	return a, ok
}

// normalizeKey lower-cases and strips underscores so that
// "published_at", "publishedAt" and "PublishedAt" all collide onto the
// same lookup key.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "")
}

// SnakeToCamel converts snake_case to camelCase. Keys without
// underscores pass through unchanged.
func SnakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	wrote := false
	for _, p := range parts {
		if p == "" {
			continue
		}
		if !wrote {
			b.WriteString(p)
			wrote = true
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if !wrote {
		return s
	}
	return b.String()
}
