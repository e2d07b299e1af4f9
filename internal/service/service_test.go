package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/notifications"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// env wires every service over one private database.
type env struct {
	db    *gorm.DB
	store *repository.Store
	authz *Authorizer

	comments  *CommentService
	reactions *ReactionService
	reports   *ReportService
	bans      *BanService
	audit     *AuditService
	groups    *GroupService
	users     *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithRecorder(t, NewAuditRecorder())
}

func newEnvWithRecorder(t *testing.T, recorder AuditRecorder) *env {
	t.Helper()
	return newEnvOn(t, testutil.NewDB(t), recorder)
}

// newEnvOn wires the services over db, which must already carry the schema and catalogue.
func newEnvOn(t *testing.T, db *gorm.DB, recorder AuditRecorder) *env {
	t.Helper()
	store := repository.NewStore(db)
	authz := NewAuthorizer(store)
	notifier := notifications.NewNotifier(nil)

	users := NewUserService(store)
	users.bcryptCost = 4

	return &env{
		db:        db,
		store:     store,
		authz:     authz,
		comments:  NewCommentService(store, authz, recorder, models.MaxCommentDepth),
		reactions: NewReactionService(store, authz),
		reports:   NewReportService(store, authz, recorder, notifier),
		bans:      NewBanService(store, authz, recorder, notifier),
		audit:     NewAuditService(store, authz, recorder),
		groups:    NewGroupService(store, authz, recorder),
		users:     users,
	}
}

func (e *env) user(t *testing.T, username, group string) Actor {
	t.Helper()
	u := testutil.CreateUser(t, e.db, username, group)
	return Actor{ID: u.ID, IP: "127.0.0.1"}
}

func (e *env) auditEntries(t *testing.T, action string) []models.AuditLogEntry {
	t.Helper()
	var entries []models.AuditLogEntry
	require.NoError(t, e.db.Where("action = ?", action).Order("id ASC").Find(&entries).Error)
	return entries
}

func (e *env) auditCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.AuditLogEntry{}).Count(&n).Error)
	return n
}

func (e *env) post(t *testing.T, actor Actor, content string, parent *models.Comment) *models.Comment {
	t.Helper()
	in := CreateCommentInput{PostSlug: "/blog/x", Content: content}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	c, err := e.comments.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return c
}

func assertCode(t *testing.T, err error, target *models.AppError) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, target, "got %v", err)
}

// failingRecorder simulates an audit sink outage after the mutation has been written.
type failingRecorder struct{}

var errAuditDown = errors.New("audit sink unavailable")

func (failingRecorder) Record(context.Context, *repository.Store, AuditInput) (*models.AuditLogEntry, error) {
	return nil, models.NewInternalError(errAuditDown)
}

func TestAuthorizer_DenyByDefault(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", permissions.GroupUser)
	mod := e.user(t, "mod", permissions.GroupModerator)

	tests := []struct {
		name       string
		userID     uint
		permission string
		want       bool
	}{
		{"granted", alice.ID, permissions.CommentCreate, true},
		{"not granted", alice.ID, permissions.CommentApprove, false},
		{"unknown permission", mod.ID, "comment.teleport", false},
		{"anonymous", 0, permissions.CommentCreate, false},
		{"unknown user", 9999, permissions.CommentCreate, false},
		{"moderator", mod.ID, permissions.CommentApprove, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := e.authz.Authorize(ctx, tt.userID, tt.permission)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("Require maps to the error taxonomy", func(t *testing.T) {
		assertCode(t, e.authz.Require(ctx, Actor{}, permissions.CommentCreate), models.ErrUnauthenticated)
		assertCode(t, e.authz.Require(ctx, alice, permissions.UserBan), models.ErrForbidden)
		assert.NoError(t, e.authz.Require(ctx, mod, permissions.UserBan))
	})

	t.Run("A group with no grants is denied everything", func(t *testing.T) {
		empty := &models.Group{Name: "lurkers"}
		require.NoError(t, e.db.Create(empty).Error)
		lurker := e.user(t, "lurker", "lurkers")

		for _, def := range permissions.All() {
			ok, err := e.authz.Authorize(ctx, lurker.ID, def.Name)
			require.NoError(t, err)
			assert.False(t, ok, def.Name)
		}
		names, err := e.authz.PermissionsFor(ctx, lurker.ID)
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestAuthorizer_PermissionAddedByMigration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", permissions.GroupAdmin)
	mod := e.user(t, "mod", permissions.GroupModerator)

	var moderators, trusted models.Group
	require.NoError(t, e.db.Where("name = ?", permissions.GroupModerator).First(&moderators).Error)
	require.NoError(t, e.db.Where("name = ?", permissions.GroupTrusted).First(&trusted).Error)

	// Rows only, the way a data migration would add a capability.
	pin := &models.Permission{Name: "comment.pin", Category: permissions.CategoryComment}
	require.NoError(t, e.db.Create(pin).Error)
	require.NoError(t, e.db.Create(&models.GroupPermission{GroupID: moderators.ID, PermissionID: pin.ID}).Error)

	ok, err := e.authz.Authorize(ctx, mod.ID, "comment.pin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, e.authz.Require(ctx, mod, "comment.pin"))

	names, err := e.authz.PermissionsFor(ctx, mod.ID)
	require.NoError(t, err)
	assert.Contains(t, names, "comment.pin")

	g, err := e.groups.GrantPermission(ctx, admin, trusted.ID, "comment.pin")
	require.NoError(t, err)
	assert.Contains(t, permissionNames(g), "comment.pin")

	reader := e.user(t, "reader", permissions.GroupTrusted)
	ok, err = e.authz.Authorize(ctx, reader.ID, "comment.pin")
	require.NoError(t, err)
	assert.True(t, ok)
}
