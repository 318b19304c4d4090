// Package enums holds the string-backed enumerations persisted in the
// database and exchanged over the API.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](kind, raw string, values []T) (T, error) {
	if v := T(raw); slices.Contains(values, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
