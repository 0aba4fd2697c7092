package server

import (
	"fmt"
	"math"
)

// SafeJSON makes an arbitrary value JSON-serializable: NaN and the
// infinities become nil (encoding/json rejects them outright), maps and
// slices are normalized recursively, and any other non-primitive value
// is stringified rather than failing the whole response.
func SafeJSON(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return value
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil
		}
		return value
	case float32:
		return SafeJSON(float64(value))
	case map[string]any:
		clean := make(map[string]any, len(value))
		for k, item := range value {
			clean[k] = SafeJSON(item)
		}
		return clean
	case []any:
		clean := make([]any, len(value))
		for i, item := range value {
			clean[i] = SafeJSON(item)
		}
		return clean
	default:
		return fmt.Sprintf("%v", value)
	}
}

// SafeJSONMap normalizes a string-keyed map in place-shape, preserving
// the map type for struct fields.
func SafeJSONMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clean := make(map[string]any, len(m))
	for k, v := range m {
		clean[k] = SafeJSON(v)
	}
	return clean
}
