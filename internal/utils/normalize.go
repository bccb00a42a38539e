package utils

import "strings"

// NormalizeTerm trims surrounding whitespace and lowercases s unless
// caseSensitive is set. Queries and dictionary terms go through the same
// policy so they meet in the same key space.
func NormalizeTerm(s string, caseSensitive bool) string {
	s = strings.TrimSpace(s)
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// Normalizer returns NormalizeTerm bound to a case policy.
func Normalizer(caseSensitive bool) func(string) string {
	return func(s string) string {
		return NormalizeTerm(s, caseSensitive)
	}
}
