package service

import "strings"

// AuthenticatedUser is the caller resolved by the auth middleware and passed
// explicitly into every service call.
type AuthenticatedUser struct {
	ID   uint
	Role string
}

// IsStaff reports whether the user may act on other students' progress.
func (u AuthenticatedUser) IsStaff() bool {
	switch strings.ToLower(strings.TrimSpace(u.Role)) {
	case "admin", "teacher", "instructor":
		return true
	default:
		return false
	}
}
