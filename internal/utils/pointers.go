package utils

import "strings"

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TrimmedPtr returns nil for blank input so optional text columns store NULL
// instead of an empty string.
func TrimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
