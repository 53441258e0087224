package extid

import (
	"fmt"
	"strings"
)

// ToORCID converts the non-blank entries to the member API shape:
//
//	{"external-id-type": "doi", "external-id-value": "...",
//	 "external-id-url": {"value": "..."}, "external-id-relationship": "SELF"}
func (l *List) ToORCID() []any {
	entries := l.NonBlank()
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		m := map[string]any{
			"external-id-type":         e.Type,
			"external-id-value":        e.Value,
			"external-id-url":          nil,
			"external-id-relationship": nil,
		}
		if e.URL != "" {
			m["external-id-url"] = map[string]any{"value": e.URL}
		}
		if e.Relationship != "" {
			m["external-id-relationship"] = string(e.Relationship)
		}
		out = append(out, m)
	}
	return out
}

// FromORCID reads external ids in either the hyphenated API shape or the
// snake_case client shape. v may be the id array itself or its wrapper
// object ({"external-id": [...]}). nil yields an empty list.
func FromORCID(v any) (*List, error) {
	var items []any
	switch x := v.(type) {
	case nil:
		return NewList(), nil
	case []any:
		items = x
	case []map[string]any:
		for _, m := range x {
			items = append(items, m)
		}
	case map[string]any:
		inner, ok := field(x, "external-id")
		if !ok {
			return NewList(), nil
		}
		return FromORCID(inner)
	default:
		return nil, fmt.Errorf("external ids: unsupported value %T", v)
	}

	l := NewList()
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("external ids: item %d is %T, not an object", i, item)
		}
		e := Entry{
			Type:         text(m, "external-id-type"),
			Value:        text(m, "external-id-value"),
			URL:          text(m, "external-id-url"),
			Relationship: Relationship(strings.ToUpper(text(m, "external-id-relationship"))),
		}
		l.entries = append(l.entries, e)
	}
	return l, nil
}

// field looks key up as given and with hyphens replaced by underscores.
func field(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok && v != nil {
		return v, true
	}
	if v, ok := m[strings.ReplaceAll(key, "-", "_")]; ok && v != nil {
		return v, true
	}
	return nil, false
}

func text(m map[string]any, key string) string {
	v, ok := field(m, key)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case map[string]any:
		if s, ok := x["value"].(string); ok {
			return s
		}
	}
	return fmt.Sprint(v)
}
