package descriptor

// Descriptor is a deployment descriptor in its native nested-mapping form,
// as produced by parsing the on-disk TOML/JSONC file. Unrecognized keys are
// preserved but never read.
type Descriptor map[string]any

// Has reports whether the top-level key is present.
func (d Descriptor) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// GetString returns the string value at key, or "" when absent or not a string.
func (d Descriptor) GetString(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// GetInt returns the integer value at key, tolerating the numeric types the
// TOML and JSON parsers produce. The second result reports presence.
func (d Descriptor) GetInt(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetArray returns the array value at key, or nil when absent.
func (d Descriptor) GetArray(key string) []any {
	if v, ok := d[key].([]any); ok {
		return v
	}
	return nil
}

// GetMap returns the nested mapping at key, or nil when absent.
func (d Descriptor) GetMap(key string) map[string]any {
	if v, ok := d[key].(map[string]any); ok {
		return v
	}
	return nil
}
