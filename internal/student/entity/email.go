package entity

import "strings"

// NormalizeEmail is applied on registration and on every lookup by email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
