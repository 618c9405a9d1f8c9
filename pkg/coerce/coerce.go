package coerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Declared parameter types understood by the coercion layer. Both the
// Python-flavoured names (dict, list) and the JSON-flavoured aliases
// (object, array) appear in registry metadata.
const (
	TypeStr    = "str"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeDict   = "dict"
	TypeObject = "object"
	TypeList   = "list"
	TypeArray  = "array"
	TypeAny    = "any"
)

// IsMapType reports whether declared names a mapping type.
func IsMapType(declared string) bool {
	return declared == TypeDict || declared == TypeObject
}

// IsSliceType reports whether declared names a sequence type.
func IsSliceType(declared string) bool {
	return declared == TypeList || declared == TypeArray
}

// IsStructuredType reports whether declared names a mapping or sequence type.
func IsStructuredType(declared string) bool {
	return IsMapType(declared) || IsSliceType(declared)
}

// ToDeclaredType converts value toward the declared parameter type.
//
// Policies:
//   - declared "str" with a map/slice value: serialise to canonical JSON
//   - declared "any" or unknown: pass through unchanged
//   - mismatched scalars: pass through; the node handles them at runtime
//
// String-to-structure parsing is NOT applied here: JSON auto-parse only
// applies to simple-template resolutions, which the caller performs
// explicitly via TryParseJSON.
func ToDeclaredType(value any, declared string) any {
	if declared != TypeStr {
		return value
	}
	switch value.(type) {
	case map[string]any, []any:
		s, err := MarshalCanonical(value)
		if err != nil {
			return value
		}
		return s
	default:
		return value
	}
}

// TryParseJSON attempts to parse s as JSON. It returns the parsed value and
// true on success, or nil and false when s is not valid JSON.
func TryParseJSON(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, false
	}
	// Reject trailing garbage after the first JSON value.
	if dec.More() {
		return nil, false
	}
	return NormalizeNumbers(parsed), true
}

// LooksLikeJSON reports whether s plausibly begins a JSON object or array.
func LooksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[')
}

// MarshalCanonical serialises value as compact JSON without HTML escaping.
// Map keys are emitted in sorted order, so output is deterministic.
func MarshalCanonical(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("serialize to JSON: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// NormalizeNumbers rewrites json.Number values into int or float64 so
// downstream consumers see ordinary Go numbers. Integral values stay
// integers instead of collapsing to float64.
func NormalizeNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, item := range v {
			v[key] = NormalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = NormalizeNumbers(item)
		}
		return v
	default:
		return value
	}
}
