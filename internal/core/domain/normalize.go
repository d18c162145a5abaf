package domain

import "strings"

// NormalizeEmail trims surrounding space and lower-cases the address so that
// lookups and the unique index agree on one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameKey folds a username for case-insensitive comparison.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
