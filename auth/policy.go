package auth

import "github.com/bigyanadk07/BugTracker"

// Messages for failed ownership checks.
const (
	MessageCannotUpdateBug     = "Not authorized to update this bug"
	MessageCannotDeleteComment = "Not authorized to delete this comment"
)

// Owned is anything with a single owning principal.
type Owned interface {
	OwnerID() string
}

// CanMutate reports whether principal may update resource: the owner or an Admin.
func CanMutate(principal *bugtracker.Principal, resource Owned) bool {
	if principal == nil || resource == nil {
		return false
	}
	return principal.Role == bugtracker.RoleAdmin || principal.ID == resource.OwnerID()
}

// CanDeleteComment reports whether principal may delete comment under
// parent: the comment author, the parent owner, or an Admin.
func CanDeleteComment(principal *bugtracker.Principal, comment, parent Owned) bool {
	if principal == nil || comment == nil || parent == nil {
		return false
	}
	switch {
	case principal.Role == bugtracker.RoleAdmin:
		return true
	case principal.ID == comment.OwnerID():
		return true
	default:
		return principal.ID == parent.OwnerID()
	}
}
