// Package service implements the comment and moderation operations. Every operation takes
// the acting identity explicitly; nothing reads an ambient session.
package service

import (
	"context"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/observability"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
)

// Actor is the identity an operation runs as. ID 0 is an anonymous reader.
type Actor struct {
	ID uint
	IP string
}

// Anonymous reports whether no user is attached.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}

// Authorizer answers permission checks against the store. It holds no cache: a revoked
// grant takes effect on the next call.
type Authorizer struct {
	store *repository.Store
}

// NewAuthorizer returns an Authorizer backed by store.
func NewAuthorizer(store *repository.Store) *Authorizer {
	return &Authorizer{store: store}
}

// Authorize reports whether userID's group grants permission. Anonymous users, unknown
// users and names with no permissions row are denied. The error is only ever a store failure.
func (a *Authorizer) Authorize(ctx context.Context, userID uint, permission string) (bool, error) {
	if userID == 0 || permission == "" {
		return false, nil
	}
	return a.store.Groups.UserHasPermission(ctx, userID, permission)
}

// Require is Authorize shaped for request gating: UNAUTHENTICATED without an identity,
// FORBIDDEN when the grant is missing.
func (a *Authorizer) Require(ctx context.Context, actor Actor, permission string) error {
	if actor.Anonymous() {
		return models.NewUnauthenticatedError("Authentication required")
	}
	ok, err := a.Authorize(ctx, actor.ID, permission)
	if err != nil {
		return err
	}
	if !ok {
		observability.AuthorizationDenials.WithLabelValues(permission).Inc()
		return models.NewForbiddenError("Missing permission " + permission)
	}
	return nil
}

// PermissionsFor lists the permission names userID currently holds.
func (a *Authorizer) PermissionsFor(ctx context.Context, userID uint) ([]string, error) {
	if userID == 0 {
		return []string{}, nil
	}
	return a.store.Groups.UserPermissionNames(ctx, userID)
}

// Visibility builds the unapproved-comment filter for viewer.
func (a *Authorizer) Visibility(ctx context.Context, viewer Actor) (repository.Visibility, error) {
	if viewer.Anonymous() {
		return repository.Visibility{}, nil
	}
	ok, err := a.Authorize(ctx, viewer.ID, permissions.CommentViewUnapproved)
	if err != nil {
		return repository.Visibility{}, err
	}
	return repository.Visibility{ViewerID: viewer.ID, IncludeUnapproved: ok}, nil
}
