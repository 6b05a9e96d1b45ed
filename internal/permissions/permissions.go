// Package permissions holds the authorization rules for blog resources.
// Checks are plain functions of (actor, resource) evaluated per request.
package permissions

// Actor is the authenticated caller as seen by permission checks. The zero
// value is an anonymous reader.
type Actor struct {
	UserID        string
	IsStaff       bool
	Authenticated bool
}

// CanManageAuthors reports whether the actor may create, update or delete
// author profiles. Anyone may read them.
func CanManageAuthors(actor Actor) bool {
	return actor.Authenticated && actor.IsStaff
}

// CanManagePosts reports whether the actor may create, update or delete
// posts. Anyone may read published posts.
func CanManagePosts(actor Actor) bool {
	return actor.Authenticated && actor.IsStaff
}

// CanCreateComment reports whether the actor may comment on a post.
func CanCreateComment(actor Actor) bool {
	return actor.Authenticated
}

// CanEditComment reports whether the actor may edit a comment. Only staff
// may edit; owners can delete but not rewrite history.
func CanEditComment(actor Actor) bool {
	return actor.Authenticated && actor.IsStaff
}

// CanDeleteComment reports whether the actor may delete the comment owned by
// ownerID: staff, or the owner themselves.
func CanDeleteComment(actor Actor, ownerID string) bool {
	if !actor.Authenticated {
		return false
	}
	if actor.IsStaff {
		return true
	}
	return actor.UserID != "" && actor.UserID == ownerID
}
