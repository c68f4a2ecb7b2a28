// Package strings provides string manipulation utilities.
package strings

// Dedupe removes duplicates and empty values from a slice of string-typed
// identifiers. Order is preserved. Role and permission id sets pass through
// this before validation so a repeated id in caller input is harmless.
func Dedupe[T ~string](values []T) []T {
	if len(values) == 0 {
		return values
	}

	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}
