package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleString converts a decoded JSON value to a display string, handling
// the loosely-typed values found in annotated audit maps (numbers, booleans
// and nested values show up where strings are expected). Returns empty
// string for nil.
func FlexibleString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case json.Number:
		return val.String()
	default:
		// Fallback: marshal whatever it is back to its JSON text.
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}
