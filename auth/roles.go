package auth

import (
	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
)

// MessageNotAuthenticated is returned when a role check runs without a principal.
const MessageNotAuthenticated = "User not authenticated"

// ParseRole maps a wire value to a Role, defaulting to User when empty.
func ParseRole(value string) (bugtracker.Role, bool) {
	if value == "" {
		return bugtracker.RoleUser, true
	}
	role := bugtracker.Role(value)
	return role, role.Valid()
}

// HasRole reports whether a principal holds any of the allowed roles.
func HasRole(principal *bugtracker.Principal, allowed ...bugtracker.Role) bool {
	if principal == nil {
		return false
	}
	for _, role := range allowed {
		if principal.Role == role {
			return true
		}
	}
	return false
}

// Authorize gates a principal on a fixed role set.
func Authorize(principal *bugtracker.Principal, allowed ...bugtracker.Role) error {
	if principal == nil {
		return apperr.Unauthenticated(MessageNotAuthenticated, nil)
	}
	if !HasRole(principal, allowed...) {
		return apperr.Forbidden("Role "+string(principal.Role)+" is not authorized to access this resource", nil)
	}
	return nil
}

// RoleGate is the route-level form of Authorize.
type RoleGate struct {
	Allowed []bugtracker.Role
}

// Authorize implements bugtracker.Authorizer.
func (g RoleGate) Authorize(_ *bugtracker.Context, principal *bugtracker.Principal) error {
	return Authorize(principal, g.Allowed...)
}
