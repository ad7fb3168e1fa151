package strapi

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// rawAttribute mirrors one attribute entry of the schema builder API.
type rawAttribute struct {
	Type       string `json:"type"`
	Target     string `json:"target"`
	Relation   string `json:"relation"`
	Component  string `json:"component"`
	Repeatable bool   `json:"repeatable"`
	Multiple   bool   `json:"multiple"`
}

type rawSchema struct {
	Kind       string                  `json:"kind"`
	Attributes map[string]rawAttribute `json:"attributes"`
}

type rawType struct {
	UID    string    `json:"uid"`
	Schema rawSchema `json:"schema"`
}

// decodeContentTypes parses the schema builder response. Attribute
// maps are sorted by name so downstream walks are deterministic.
func decodeContentTypes(data []byte) ([]schema.ContentType, error) {
	var payload struct {
		Data []rawType `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode content types: %w", err)
	}

	out := make([]schema.ContentType, 0, len(payload.Data))
	for _, rt := range payload.Data {
		out = append(out, schema.ContentType{
			UID:        rt.UID,
			Kind:       rt.Schema.Kind,
			Attributes: sortedAttributes(rt.Schema.Attributes),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func decodeComponents(data []byte) (map[string]schema.Component, error) {
	var payload struct {
		Data []rawType `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}

	out := make(map[string]schema.Component, len(payload.Data))
	for _, rt := range payload.Data {
		out[rt.UID] = schema.Component{
			UID:        rt.UID,
			Attributes: sortedAttributes(rt.Schema.Attributes),
		}
	}
	return out, nil
}

func sortedAttributes(raw map[string]rawAttribute) []schema.Attribute {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]schema.Attribute, 0, len(names))
	for _, name := range names {
		ra := raw[name]
		out = append(out, schema.Attribute{
			Name:       name,
			Type:       ra.Type,
			Target:     ra.Target,
			Relation:   ra.Relation,
			Component:  ra.Component,
			Repeatable: ra.Repeatable,
			Multiple:   ra.Multiple,
		})
	}
	return out
}

// decodeEntry parses one record, unwrapping the {"data": ...}
// envelope when present.
func decodeEntry(data []byte) (content.Object, error) {
	v, err := content.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	obj, ok := v.(content.Object)
	if !ok {
		return nil, fmt.Errorf("decode entry: expected object, got %T", v)
	}
	if inner, ok := obj["data"].(content.Object); ok {
		return inner, nil
	}
	return obj, nil
}

// decodeEntryPage parses a paginated listing: {"results": [...],
// "pagination": {"pageCount": N}}. A response without pagination
// counts as a single page.
func decodeEntryPage(data []byte) ([]content.Object, int, error) {
	var envelope struct {
		Results    []json.RawMessage `json:"results"`
		Pagination struct {
			PageCount int `json:"pageCount"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode page: %w", err)
	}

	out := make([]content.Object, 0, len(envelope.Results))
	for i, raw := range envelope.Results {
		obj, err := decodeEntry(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("result[%d]: %w", i, err)
		}
		out = append(out, obj)
	}

	pageCount := envelope.Pagination.PageCount
	if pageCount < 1 {
		pageCount = 1
	}
	return out, pageCount, nil
}
