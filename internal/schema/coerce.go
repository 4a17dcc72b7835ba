// internal/schema/coerce.go
package schema

import (
	"encoding/json"
	"strconv"
	"strings"

	"vitrine/internal/store"
)

// CoerceList turns whatever a list-valued column holds into an ordered
// list of strings. List columns are stored as JSON arrays, but legacy
// rows may hold a bare scalar; a lone scalar becomes a one-element list.
// The coercion is one-directional: writing always stores a JSON list, so
// repeated load/save cycles are stable.
func CoerceList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return []string{}
		}
		if strings.HasPrefix(s, "[") {
			var list []string
			if err := json.Unmarshal([]byte(s), &list); err == nil {
				return list
			}
		}
		return []string{s}
	default:
		return []string{}
	}
}

// EncodeList marshals a list for storage. Always a JSON array, even for
// zero or one element.
func EncodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

// ParseNumber parses a numeric field best-effort. The boolean is false
// when the value cannot be read as a number; callers fall back to the
// field default rather than blocking the edit.
func ParseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ReadValue resolves a field's value from a raw record, applying the
// list coercion and the field default.
func ReadValue(rec store.Record, f Field) any {
	v, ok := rec[f.Name]
	if f.IsList() {
		return CoerceList(v)
	}
	if !ok || v == nil {
		return f.Default
	}
	if f.Kind == Number {
		if n, ok := ParseNumber(v); ok {
			return n
		}
		return f.Default
	}
	return v
}

// BuildPatch assembles the table-specific update payload from a working
// copy, keeping only the category's schema fields. List fields are
// re-encoded as JSON arrays; unparsable numbers are dropped from the
// patch rather than written as garbage.
func BuildPatch(fields []Field, working map[string]any) store.Record {
	patch := make(store.Record, len(fields))
	for _, f := range fields {
		v, ok := working[f.Name]
		if !ok {
			continue
		}
		switch {
		case f.IsList():
			patch[f.Name] = EncodeList(CoerceList(v))
		case f.Kind == Number:
			if v == nil {
				patch[f.Name] = nil
				continue
			}
			if n, parsed := ParseNumber(v); parsed {
				patch[f.Name] = n
			}
		default:
			patch[f.Name] = v
		}
	}
	return patch
}
