// Package env reads process settings needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Get returns the value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
