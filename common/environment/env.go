// Package environment provides helpers for reading configuration overrides
// from environment variables.
//
// Helpers never terminate the process; a variable that is unset, empty, or
// unparseable falls back to the supplied default so library code stays free
// of os.Exit.
package environment

import (
	"os"
	"strconv"
)

// StringOr returns the named variable's value, or defaultValue when the
// variable is unset or empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// IntOr parses the named variable as a decimal integer, falling back to
// defaultValue when unset, empty, or malformed.
func IntOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// BoolOr parses the named variable with strconv.ParseBool semantics, falling
// back to defaultValue when unset, empty, or malformed.
func BoolOr(name string, defaultValue bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
