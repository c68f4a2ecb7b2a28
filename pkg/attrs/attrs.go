// Package attrs inspects slog-style key-value attribute slices.
package attrs

// ExtractString returns the string value for key in an attribute slice laid
// out as [key1, value1, key2, value2, ...]. Returns "" when the key is absent
// or its value is not a string.
func ExtractString(attrList []any, key string) string {
	for i := 0; i+1 < len(attrList); i += 2 {
		k, ok := attrList[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrList[i+1].(string); ok {
			return v
		}
	}
	return ""
}

// ExtractFirst returns the first non-empty string value among keys.
func ExtractFirst(attrList []any, keys ...string) string {
	for _, key := range keys {
		if v := ExtractString(attrList, key); v != "" {
			return v
		}
	}
	return ""
}
