package compare

import (
	"bytes"
	"sort"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
)

// technicalFields are instance-managed keys stripped during
// normalization: numeric row ids, audit timestamps and upload-provider
// metadata all differ between instances without the content differing.
var technicalFields = map[string]bool{
	"id":                true,
	"createdAt":         true,
	"updatedAt":         true,
	"publishedAt":       true,
	"created_at":        true,
	"updated_at":        true,
	"published_at":      true,
	"createdBy":         true,
	"updatedBy":         true,
	"url":               true,
	"previewUrl":        true,
	"provider":          true,
	"provider_metadata": true,
	"formats":           true,
}

// IsTechnicalField reports whether a key is instance-managed and
// excluded from normalized content and from target payloads.
func IsTechnicalField(key string) bool {
	return technicalFields[key]
}

// Normalize strips technical fields at every depth and sorts array
// elements by their canonical serialization, so structurally identical
// content hashes identically regardless of field or array ordering.
// The input is never mutated.
func Normalize(v content.Value) content.Value {
	switch val := v.(type) {
	case content.Object:
		out := make(content.Object, len(val))
		for k, elem := range val {
			if technicalFields[k] {
				continue
			}
			out[k] = Normalize(elem)
		}
		return out
	case content.Array:
		out := make(content.Array, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		sortArray(out)
		return out
	default:
		return v
	}
}

// sortArray orders elements by canonical bytes. Elements that fail to
// marshal sort last; the subsequent hash of the same tree will surface
// the actual error.
func sortArray(arr content.Array) {
	type keyed struct {
		key  []byte
		elem content.Value
	}
	pairs := make([]keyed, len(arr))
	for i, elem := range arr {
		b, err := content.MarshalCanonical(elem)
		if err != nil {
			b = nil
		}
		pairs[i] = keyed{key: b, elem: elem}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].key == nil {
			return false
		}
		if pairs[j].key == nil {
			return true
		}
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})
	for i, p := range pairs {
		arr[i] = p.elem
	}
}
