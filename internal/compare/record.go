package compare

import (
	"fmt"
	"strconv"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
)

// Record is one entity instance fetched from an instance, in both its
// verbatim and normalized forms. Immutable once produced for a fetch.
type Record struct {
	ID         int64
	DocumentID string
	Locale     string
	Raw        content.Object
	Normalized content.Object
	Hash       string
}

// Fields ignored when hashing. DocumentID differs per instance by
// construction; locale is part of the match key, not the content.
var hashIgnoredFields = []string{"documentId", "locale"}

// NewRecord builds a Record from a raw API payload: extracts identity
// fields, normalizes the tree and computes the content digest.
func NewRecord(raw content.Object) (Record, error) {
	rec := Record{Raw: raw}

	if v, ok := raw["id"]; ok {
		if n, ok := v.(content.Number); ok {
			id, err := strconv.ParseInt(string(n), 10, 64)
			if err != nil {
				return Record{}, fmt.Errorf("record id %q: %w", n, err)
			}
			rec.ID = id
		}
	}
	if v, ok := raw["documentId"]; ok {
		if s, ok := v.(content.String); ok {
			rec.DocumentID = string(s)
		}
	}
	if v, ok := raw["locale"]; ok {
		if s, ok := v.(content.String); ok {
			rec.Locale = string(s)
		}
	}

	normalized, ok := Normalize(raw).(content.Object)
	if !ok {
		return Record{}, fmt.Errorf("normalize: expected object, got %T", Normalize(raw))
	}
	rec.Normalized = normalized

	digest, err := content.Hash(normalized, hashIgnoredFields...)
	if err != nil {
		return Record{}, fmt.Errorf("hash record %s: %w", rec.DocumentID, err)
	}
	rec.Hash = digest

	return rec, nil
}

// NewRecords builds records for a whole fetched set.
func NewRecords(raws []content.Object) ([]Record, error) {
	out := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := NewRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record[%d]: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// matchKey identifies a record within one content type across locales.
type matchKey struct {
	documentID string
	locale     string
}
