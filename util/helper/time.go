package helper_util

import (
	"time"
)

// Helper function to parse time
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	return t, err
}

// ParseOptionalTime parses an RFC 3339 timestamp; the empty string is the zero time.
func ParseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseTime(s)
}
