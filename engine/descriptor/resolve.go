package descriptor

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ResolvePath walks a dotted path (e.g. "durable_objects.bindings") through
// the descriptor and returns the value found there, or nil the moment any
// segment is absent. It never returns an error: rules targeting nested input
// structure treat a missing path as "key not present".
func ResolvePath(root map[string]any, dotted string) any {
	if dotted == "" || root == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(root)
	if err != nil {
		return nil
	}
	result := gjson.GetBytes(jsonBytes, dotted)
	if !result.Exists() {
		return nil
	}
	return result.Value()
}

// ResolveArray is ResolvePath narrowed to array-valued paths; non-array
// values resolve to nil.
func ResolveArray(root map[string]any, dotted string) []any {
	v, ok := ResolvePath(root, dotted).([]any)
	if !ok {
		return nil
	}
	return v
}
