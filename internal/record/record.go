// Package record models the opaque, key-path-addressable records handed
// out by the data-access layer. Nothing here assumes a key is present.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned when writing through a path with no keys.
var ErrEmptyPath = errors.New("empty accessor path")

// Record is a semi-structured document: nested maps, slices and scalars
// as produced by decoding JSON.
type Record map[string]any

// Path is an ordered sequence of keys into a Record.
type Path []string

// ParsePath splits a dotted accessor such as "organization.address.city".
// Empty segments are dropped, so "" yields an empty path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			p = append(p, part)
		}
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// IsZero reports whether the path has no keys.
func (p Path) IsZero() bool {
	return len(p) == 0
}

// UnmarshalYAML lets descriptors declare paths as dotted strings.
func (p *Path) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("accessor path at line %d: %w", node.Line, err)
	}
	*p = ParsePath(s)
	return nil
}

// Lookup resolves the path. Any missing key, non-container intermediate
// or out-of-range slice index yields false.
func (r Record) Lookup(p Path) (any, bool) {
	if len(p) == 0 {
		if r == nil {
			return nil, false
		}
		return map[string]any(r), true
	}
	var cur any = map[string]any(r)
	for _, key := range p {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case Record:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// String resolves the path and renders the value as text, falling back to
// def when the path is missing or the value is not a scalar.
func (r Record) String(p Path, def string) string {
	v, ok := r.Lookup(p)
	if !ok {
		return def
	}
	s, ok := Scalar(v)
	if !ok {
		return def
	}
	return s
}

// Scalar renders a decoded JSON value as text. Maps of the form
// {"value": x} are unwrapped.
func Scalar(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	case map[string]any:
		if inner, ok := x["value"]; ok {
			return Scalar(inner)
		}
		return "", false
	case Record:
		return Scalar(map[string]any(x))
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

// Set writes v at path, creating intermediate maps and replacing any
// non-map intermediate.
func (r Record) Set(p Path, v any) error {
	if len(p) == 0 {
		return ErrEmptyPath
	}
	cur := map[string]any(r)
	for _, key := range p[:len(p)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			if rec, isRec := cur[key].(Record); isRec {
				next = map[string]any(rec)
			} else {
				next = make(map[string]any)
				cur[key] = next
			}
		}
		cur = next
	}
	cur[p[len(p)-1]] = v
	return nil
}

// Delete removes the value at path. Missing intermediates are not an error.
func (r Record) Delete(p Path) {
	if len(p) == 0 {
		return
	}
	parent, ok := r.Lookup(p[:len(p)-1])
	if !ok {
		return
	}
	switch m := parent.(type) {
	case map[string]any:
		delete(m, p[len(p)-1])
	case Record:
		delete(m, p[len(p)-1])
	}
}

// Decode parses a JSON document into a Record.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if r == nil {
		r = Record{}
	}
	return r, nil
}

// Encode serialises the record as JSON.
func (r Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}
