package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	obj := Object{
		"title": String("Hello"),
		"count": Number("3"),
		"tags":  Array{String("a"), String("b")},
	}

	h1, err := Hash(obj)
	require.NoError(t, err)
	h2, err := Hash(obj)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "Hash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashIgnoresNamedFieldsAtEveryDepth(t *testing.T) {
	a := Object{
		"title":      String("Hello"),
		"documentId": String("doc-source"),
		"seo": Object{
			"documentId":  String("nested-source"),
			"description": String("same"),
		},
	}
	b := Object{
		"title":      String("Hello"),
		"documentId": String("doc-target"),
		"seo": Object{
			"documentId":  String("nested-target"),
			"description": String("same"),
		},
	}

	assert.Equal(t,
		MustHash(a, "documentId"),
		MustHash(b, "documentId"),
		"records differing only in ignored fields hash identically")

	assert.NotEqual(t,
		MustHash(a),
		MustHash(b),
		"without the ignore list the identifiers count")
}

func TestHashKeyOrderIndependent(t *testing.T) {
	// Maps iterate in random order; the digest must not notice.
	a := Object{"x": Number("1"), "y": Number("2"), "z": Number("3")}
	b := Object{"z": Number("3"), "y": Number("2"), "x": Number("1")}

	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestHashArrayOrderMatters(t *testing.T) {
	a := Object{"tags": Array{String("a"), String("b")}}
	b := Object{"tags": Array{String("b"), String("a")}}

	assert.NotEqual(t, MustHash(a), MustHash(b), "array order is content")
}

func TestHashNumberLiteralPreserved(t *testing.T) {
	// "1.0" and "1" are different literals, hence different content
	// bytes. Instances that agree on the literal agree on the digest.
	a := Object{"price": Number("1.0")}
	b := Object{"price": Number("1")}

	assert.NotEqual(t, MustHash(a), MustHash(b))
}

func TestStripFieldsDoesNotMutate(t *testing.T) {
	obj := Object{
		"keep": String("v"),
		"drop": String("w"),
		"sub":  Object{"drop": String("x")},
	}

	stripped := StripFields(obj, "drop").(Object)

	assert.NotContains(t, stripped, "drop")
	assert.NotContains(t, stripped["sub"].(Object), "drop")
	assert.Contains(t, obj, "drop", "input must stay intact")
	assert.Contains(t, obj["sub"].(Object), "drop")
}
