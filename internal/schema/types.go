package schema

// Attribute kinds that carry cross-record references.
const (
	TypeRelation    = "relation"
	TypeComponent   = "component"
	TypeMedia       = "media"
	TypeDynamicZone = "dynamiczone"
)

// Attribute describes one field of a content type or component.
// Scalar kinds (string, integer, richtext, ...) only need Name/Type;
// the remaining fields qualify relations, components and media.
type Attribute struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Target     string `json:"target,omitempty"`     // relation target uid, e.g. "api::author.author"
	Relation   string `json:"relation,omitempty"`   // "oneToOne", "oneToMany", "manyToMany", ...
	Component  string `json:"component,omitempty"`  // component uid for type "component"
	Repeatable bool   `json:"repeatable,omitempty"` // component arrays
	Multiple   bool   `json:"multiple,omitempty"`   // media arrays
}

// ContentType is the schema of a single or collection type as served
// by the instance API.
type ContentType struct {
	UID        string      `json:"uid"`  // "api::article.article"
	Kind       string      `json:"kind"` // "collectionType" | "singleType"
	Attributes []Attribute `json:"attributes"`
}

// KindCollection and KindSingle are the two content-type kinds.
// Single types have exactly one record and no pagination.
const (
	KindCollection = "collectionType"
	KindSingle     = "singleType"
)

// Component is a reusable nested sub-schema, optionally embedded as a
// repeatable array inside a content type.
type Component struct {
	UID        string      `json:"uid"` // "shared.seo"
	Attributes []Attribute `json:"attributes"`
}

// IsCollection reports whether the content type is paginated.
func (ct ContentType) IsCollection() bool {
	return ct.Kind != KindSingle
}

// Attribute returns the attribute with the given canonical name.
func (ct ContentType) Attribute(name string) (Attribute, bool) {
	for _, a := range ct.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// IsLink reports whether the attribute references another record
// (relation or media). Components are containers, not links.
func (a Attribute) IsLink() bool {
	return a.Type == TypeRelation || a.Type == TypeMedia
}
