package util

import "strings"

// SanitizeStoreText strips NUL bytes and invalid UTF-8 from a value before
// it is written as a string property to the graph store.
func SanitizeStoreText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// CollapseWhitespace replaces every run of whitespace with a single space
// and trims the result.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
