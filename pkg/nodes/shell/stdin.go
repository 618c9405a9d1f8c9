package shell

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/spinje/pflow/pkg/coerce"
)

// adaptStdin converts any template-resolved value into a string suitable for
// subprocess stdin, or nil for "no input".
//
// Conversion rules:
//   - nil: no input
//   - string: pass through
//   - map/slice: serialise to JSON (the common jq / python pipe case)
//   - []byte: decode UTF-8, falling back to Latin-1 which accepts any byte
//   - bool: lowercase "true"/"false" for CLI and JSON compatibility
//   - everything else: fmt representation
func adaptStdin(stdin any) (*string, error) {
	switch v := stdin.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case map[string]any, []any:
		s, err := coerce.MarshalCanonical(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		}
		return &s, nil
	case []byte:
		if utf8.Valid(v) {
			s := string(v)
			return &s, nil
		}
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(v)
		if err != nil {
			return nil, fmt.Errorf("decode stdin bytes: %w", err)
		}
		s := string(decoded)
		return &s, nil
	case bool:
		s := "false"
		if v {
			s = "true"
		}
		return &s, nil
	default:
		s := fmt.Sprintf("%v", v)
		return &s, nil
	}
}
