package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCompatibilityIdenticalSchemas(t *testing.T) {
	ct, _ := articleSchema()
	source := []ContentType{ct}
	target := []ContentType{ct}

	assert.Empty(t, CheckCompatibility(source, target))
}

func TestCheckCompatibilityTargetExtrasIgnored(t *testing.T) {
	src := ContentType{
		UID:        "api::a.a",
		Kind:       KindCollection,
		Attributes: []Attribute{{Name: "title", Type: "string"}},
	}
	dst := src
	dst.Attributes = append([]Attribute{}, src.Attributes...)
	dst.Attributes = append(dst.Attributes, Attribute{Name: "targetOnly", Type: "string"})

	assert.Empty(t, CheckCompatibility([]ContentType{src}, []ContentType{dst}),
		"target-only fields never receive writes")
}

func TestCheckCompatibilityFindings(t *testing.T) {
	tests := []struct {
		name   string
		source ContentType
		target []ContentType
		reason string
	}{
		{
			name:   "missing content type",
			source: ContentType{UID: "api::a.a", Kind: KindCollection},
			target: nil,
			reason: "content type missing on target",
		},
		{
			name:   "kind mismatch",
			source: ContentType{UID: "api::a.a", Kind: KindCollection},
			target: []ContentType{{UID: "api::a.a", Kind: KindSingle}},
			reason: "kind mismatch: source collectionType, target singleType",
		},
		{
			name: "missing field",
			source: ContentType{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "title", Type: "string"}}},
			target: []ContentType{{UID: "api::a.a", Kind: KindCollection}},
			reason: "field missing on target",
		},
		{
			name: "type mismatch",
			source: ContentType{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "title", Type: "string"}}},
			target: []ContentType{{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "title", Type: "integer"}}}},
			reason: "type mismatch: source string, target integer",
		},
		{
			name: "relation target mismatch",
			source: ContentType{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "author", Type: TypeRelation, Target: "api::x.x"}}},
			target: []ContentType{{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "author", Type: TypeRelation, Target: "api::y.y"}}}},
			reason: "relation target mismatch: source api::x.x, target api::y.y",
		},
		{
			name: "repeatable mismatch",
			source: ContentType{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "blocks", Type: TypeComponent, Component: "c.c", Repeatable: true}}},
			target: []ContentType{{UID: "api::a.a", Kind: KindCollection,
				Attributes: []Attribute{{Name: "blocks", Type: TypeComponent, Component: "c.c"}}}},
			reason: "repeatable mismatch",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := CheckCompatibility([]ContentType{tc.source}, tc.target)
			require.Len(t, out, 1)
			assert.Equal(t, tc.reason, out[0].Reason)
		})
	}
}
