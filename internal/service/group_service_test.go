package service

import (
	"context"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permissionNames(g *models.Group) []string {
	names := make([]string, 0, len(g.Permissions))
	for _, p := range g.Permissions {
		names = append(names, p.Name)
	}
	return names
}

func TestGroupService_CreateAndGrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	mod := e.user(t, "moder", permissions.GroupModerator)

	_, err := e.groups.CreateGroup(ctx, mod, CreateGroupInput{Name: "editors"})
	assertCode(t, err, models.ErrForbidden)
	_, err = e.groups.CreateGroup(ctx, admin, CreateGroupInput{Name: "Not Valid!"})
	assertCode(t, err, models.ErrValidation)

	g, err := e.groups.CreateGroup(ctx, admin, CreateGroupInput{Name: " Editors ", Description: "copy desk"})
	require.NoError(t, err)
	assert.Equal(t, "editors", g.Name)
	assert.Empty(t, g.Permissions)
	require.Len(t, e.auditEntries(t, ActionGroupCreate), 1)

	_, err = e.groups.CreateGroup(ctx, admin, CreateGroupInput{Name: "editors"})
	assertCode(t, err, models.ErrConflict)

	g, err = e.groups.GrantPermission(ctx, admin, g.ID, permissions.CommentEditAny)
	require.NoError(t, err)
	assert.Equal(t, []string{permissions.CommentEditAny}, permissionNames(g))
	assert.Equal(t, permissions.CategoryComment, g.Permissions[0].Category)

	_, err = e.groups.GrantPermission(ctx, admin, g.ID, permissions.CommentEditAny)
	assertCode(t, err, models.ErrConflict)
	_, err = e.groups.GrantPermission(ctx, admin, g.ID, "comment.teleport")
	assertCode(t, err, models.ErrNotFound)
	_, err = e.groups.GrantPermission(ctx, admin, 9999, permissions.CommentEditAny)
	assertCode(t, err, models.ErrNotFound)
	_, err = e.groups.RevokePermission(ctx, admin, g.ID, permissions.UserBan)
	assertCode(t, err, models.ErrNotFound)

	grants := e.auditEntries(t, ActionPermissionGrant)
	require.Len(t, grants, 1)
	assert.Equal(t, models.AuditTargetPermission, grants[0].TargetType)
	assert.Equal(t, permissions.CommentEditAny, grants[0].Detail["permission"])

	groups, err := e.groups.ListGroups(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, groups, len(permissions.DefaultGroups())+1)

	got, err := e.groups.GetGroup(ctx, admin, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{permissions.CommentEditAny}, permissionNames(got))
}

func TestGroupService_RevokeTakesEffectImmediately(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	alice := e.user(t, "alice", permissions.GroupUser)

	users, err := e.store.Groups.GetDefault(ctx)
	require.NoError(t, err)

	_, err = e.groups.RevokePermission(ctx, admin, users.ID, permissions.CommentCreate)
	require.NoError(t, err)
	_, err = e.comments.Create(ctx, alice, CreateCommentInput{PostSlug: "/blog/x", Content: "hello"})
	assertCode(t, err, models.ErrForbidden)
	assert.Len(t, e.auditEntries(t, ActionPermissionRevoke), 1)

	_, err = e.groups.GrantPermission(ctx, admin, users.ID, permissions.CommentCreate)
	require.NoError(t, err)
	_, err = e.comments.Create(ctx, alice, CreateCommentInput{PostSlug: "/blog/x", Content: "hello"})
	assert.NoError(t, err)
}

func TestGroupService_AssignUserGroup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	mod := e.user(t, "moder", permissions.GroupModerator)
	alice := e.user(t, "alice", permissions.GroupUser)

	var trusted models.Group
	require.NoError(t, e.db.Where("name = ?", permissions.GroupTrusted).First(&trusted).Error)

	_, err := e.groups.AssignUserGroup(ctx, mod, alice.ID, trusted.ID)
	assertCode(t, err, models.ErrForbidden)
	_, err = e.groups.AssignUserGroup(ctx, admin, admin.ID, trusted.ID)
	assertCode(t, err, models.ErrValidation)
	_, err = e.groups.AssignUserGroup(ctx, admin, alice.ID, 9999)
	assertCode(t, err, models.ErrNotFound)

	u, err := e.groups.AssignUserGroup(ctx, admin, alice.ID, trusted.ID)
	require.NoError(t, err)
	assert.Equal(t, trusted.ID, u.GroupID)

	entries := e.auditEntries(t, ActionUserGroupAssign)
	require.Len(t, entries, 1)
	assert.Equal(t, alice.ID, entries[0].TargetID)

	c := e.post(t, alice, "now trusted", nil)
	assert.True(t, c.Approved)
}

func TestGroupService_AuditFailureRollsBack(t *testing.T) {
	e := newEnvWithRecorder(t, failingRecorder{})
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	alice := e.user(t, "alice", permissions.GroupUser)

	users, err := e.store.Groups.GetDefault(ctx)
	require.NoError(t, err)
	var trusted models.Group
	require.NoError(t, e.db.Where("name = ?", permissions.GroupTrusted).First(&trusted).Error)

	_, err = e.groups.GrantPermission(ctx, admin, users.ID, permissions.CommentApprove)
	assert.ErrorIs(t, err, errAuditDown)
	ok, err := e.authz.Authorize(ctx, alice.ID, permissions.CommentApprove)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.groups.AssignUserGroup(ctx, admin, alice.ID, trusted.ID)
	assert.ErrorIs(t, err, errAuditDown)
	u, err := e.store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, users.ID, u.GroupID)

	_, err = e.groups.CreateGroup(ctx, admin, CreateGroupInput{Name: "ghosts"})
	assert.ErrorIs(t, err, errAuditDown)
	var n int64
	require.NoError(t, e.db.Model(&models.Group{}).Where("name = ?", "ghosts").Count(&n).Error)
	assert.Zero(t, n)

	assert.Zero(t, e.auditCount(t))
}
