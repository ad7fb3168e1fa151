package schema

import "fmt"

// Incompatibility describes one reason a source content type cannot be
// synchronized into the target schema. An empty result is the
// precondition for any sync run.
type Incompatibility struct {
	ContentType string `json:"contentType"`
	Field       string `json:"field,omitempty"`
	Reason      string `json:"reason"`
}

func (i Incompatibility) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.ContentType, i.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", i.ContentType, i.Field, i.Reason)
}

// CheckCompatibility verifies field-by-field that every source content
// type has a structurally compatible counterpart on the target.
// Fields present only on the target are ignored: source wins and never
// writes them. This is a precondition check, not a migration.
func CheckCompatibility(source, target []ContentType) []Incompatibility {
	targetByUID := make(map[string]ContentType, len(target))
	for _, ct := range target {
		targetByUID[ct.UID] = ct
	}

	var out []Incompatibility
	for _, src := range source {
		dst, ok := targetByUID[src.UID]
		if !ok {
			out = append(out, Incompatibility{
				ContentType: src.UID,
				Reason:      "content type missing on target",
			})
			continue
		}
		if src.Kind != dst.Kind {
			out = append(out, Incompatibility{
				ContentType: src.UID,
				Reason:      fmt.Sprintf("kind mismatch: source %s, target %s", src.Kind, dst.Kind),
			})
		}
		out = append(out, compareAttributes(src.UID, src.Attributes, dst)...)
	}
	return out
}

func compareAttributes(uid string, src []Attribute, dst ContentType) []Incompatibility {
	var out []Incompatibility
	for _, sa := range src {
		da, ok := dst.Attribute(sa.Name)
		if !ok {
			out = append(out, Incompatibility{
				ContentType: uid,
				Field:       sa.Name,
				Reason:      "field missing on target",
			})
			continue
		}
		if sa.Type != da.Type {
			out = append(out, Incompatibility{
				ContentType: uid,
				Field:       sa.Name,
				Reason:      fmt.Sprintf("type mismatch: source %s, target %s", sa.Type, da.Type),
			})
			continue
		}
		switch sa.Type {
		case TypeRelation:
			if sa.Target != da.Target {
				out = append(out, Incompatibility{
					ContentType: uid,
					Field:       sa.Name,
					Reason:      fmt.Sprintf("relation target mismatch: source %s, target %s", sa.Target, da.Target),
				})
			}
		case TypeComponent:
			if sa.Component != da.Component {
				out = append(out, Incompatibility{
					ContentType: uid,
					Field:       sa.Name,
					Reason:      fmt.Sprintf("component mismatch: source %s, target %s", sa.Component, da.Component),
				})
			} else if sa.Repeatable != da.Repeatable {
				out = append(out, Incompatibility{
					ContentType: uid,
					Field:       sa.Name,
					Reason:      "repeatable mismatch",
				})
			}
		}
	}
	return out
}
