package domain

import (
	"regexp"
	"strings"
)

var codeShape = regexp.MustCompile(`^[A-Z0-9_-]{2,32}$`)

// NormalizeCode is applied to session codes at every boundary (HTTP, sockets, rooms, stores).
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsSessionCode reports whether a normalized string has the shape of a session code.
func IsSessionCode(code string) bool {
	return codeShape.MatchString(code)
}
