package core

import "regexp"

var bearerPattern = regexp.MustCompile(`(?i)^\s*bearer\s+(\S+)\s*$`)

// ParseBearer returns the token of an Authorization header value of the form
// "Bearer <token>", matching the scheme case-insensitively. It returns an
// empty string for any other value.
func ParseBearer(header string) string {
	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}
