package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ConvertToString renders a resolved value for interpolation into a string.
//
// Conversion rules:
//   - nil and "" render as ""
//   - booleans render as "True"/"False"
//   - numbers render in their shortest decimal form ("0" for zero)
//   - empty slices and maps render as "[]" and "{}"
//   - non-empty slices and maps render as compact JSON
//   - everything else falls back to fmt.Sprintf("%v")
//
// Booleans are deliberately capitalised here; the shell node's stdin adapter
// lowercases them instead for CLI compatibility. Both renderings are part of
// the runtime's contract.
func ConvertToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case []any:
		if len(v) == 0 {
			return "[]"
		}
		return marshalCompact(v)
	case map[string]any:
		if len(v) == 0 {
			return "{}"
		}
		return marshalCompact(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// marshalCompact serialises value as compact JSON without HTML escaping.
func marshalCompact(value any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Sprintf("%v", value)
	}
	// Encoder appends a trailing newline.
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
