package emailutil

import "strings"

// Normalize normalizes an email address for consistent comparison
// by converting to lowercase and trimming whitespace
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Equal compares two addresses after normalization
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// Contains reports whether email is in list, ignoring case and surrounding whitespace
func Contains(list []string, email string) bool {
	for _, candidate := range list {
		if Equal(candidate, email) {
			return true
		}
	}
	return false
}
