package auth

import "github.com/spec-kit/chatdesk-admin/internal/domain"

// HasRole reports whether the claims carry one of roles. An empty list
// admits any authenticated caller.
func (c *Claims) HasRole(roles ...domain.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}
