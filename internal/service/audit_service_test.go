package service

import (
	"context"
	"testing"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) backdatedEntry(t *testing.T, admin Actor, action string, age time.Duration) *models.AuditLogEntry {
	t.Helper()
	entry := &models.AuditLogEntry{
		EventID:    uuid.NewString(),
		AdminID:    admin.ID,
		Action:     action,
		TargetType: models.AuditTargetComment,
		TargetID:   1,
		CreatedAt:  time.Now().UTC().Add(-age),
	}
	require.NoError(t, e.store.Audit.Append(context.Background(), entry))
	return entry
}

func TestAuditService_List(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	mod := e.user(t, "moder", permissions.GroupModerator)
	author := e.user(t, "author", permissions.GroupUser)

	c := e.post(t, author, "pending", nil)
	_, err := e.comments.Approve(ctx, mod, c.ID)
	require.NoError(t, err)
	_, err = e.bans.Ban(ctx, mod, BanInput{UserID: author.ID, Reason: "spam"})
	require.NoError(t, err)

	page, err := e.audit.List(ctx, admin, repository.AuditFilter{}, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	assert.Equal(t, ActionUserBan, page.Items[0].Action, "newest first")
	assert.Equal(t, ActionCommentApprove, page.Items[1].Action)
	require.NotNil(t, page.Items[0].Admin)
	assert.Equal(t, "moder", page.Items[0].Admin.Username)

	page, err = e.audit.List(ctx, admin, repository.AuditFilter{TargetType: models.AuditTargetComment, TargetID: c.ID}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = e.audit.List(ctx, admin, repository.AuditFilter{TargetType: "planet"}, 10, 0)
	assertCode(t, err, models.ErrValidation)

	_, err = e.audit.List(ctx, mod, repository.AuditFilter{}, 10, 0)
	assertCode(t, err, models.ErrForbidden)
}

func TestAuditService_Purge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	mod := e.user(t, "moder", permissions.GroupModerator)

	e.backdatedEntry(t, mod, ActionCommentApprove, 100*24*time.Hour)
	e.backdatedEntry(t, mod, ActionUserBan, 95*24*time.Hour)
	recent := e.backdatedEntry(t, mod, ActionCommentDelete, time.Hour)

	_, err := e.audit.Purge(ctx, mod, 90*24*time.Hour)
	assertCode(t, err, models.ErrForbidden)
	_, err = e.audit.Purge(ctx, admin, 0)
	assertCode(t, err, models.ErrValidation)

	res, err := e.audit.Purge(ctx, admin, 90*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Removed)
	assert.NotZero(t, res.EntryID)

	var remaining []models.AuditLogEntry
	require.NoError(t, e.db.Order("id ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, recent.ID, remaining[0].ID)
	assert.Equal(t, res.EntryID, remaining[1].ID)
	assert.Equal(t, ActionAuditPurge, remaining[1].Action)
	assert.Equal(t, admin.ID, remaining[1].AdminID)
	assert.Equal(t, "2160h0m0s", remaining[1].Detail["older_than"])
}

func TestAuditService_PurgeAuditFailureKeepsEntries(t *testing.T) {
	e := newEnvWithRecorder(t, failingRecorder{})
	ctx := context.Background()
	admin := e.user(t, "root", permissions.GroupAdmin)
	e.backdatedEntry(t, admin, ActionCommentApprove, 400*24*time.Hour)

	_, err := e.audit.Purge(ctx, admin, 24*time.Hour)
	assert.ErrorIs(t, err, errAuditDown)
	assert.EqualValues(t, 1, e.auditCount(t))
}

func TestRetentionJob_RunOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	system := e.user(t, "system", permissions.GroupAdmin)
	mod := e.user(t, "moder", permissions.GroupModerator)
	e.backdatedEntry(t, mod, ActionCommentApprove, 48*time.Hour)
	e.backdatedEntry(t, mod, ActionCommentApprove, time.Minute)

	job := NewRetentionJob(e.audit, system.ID, 24*time.Hour, 0)
	assert.Equal(t, 24*time.Hour, job.interval)

	res, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Removed)

	entries := e.auditEntries(t, ActionAuditPurge)
	require.Len(t, entries, 1)
	assert.Equal(t, system.ID, entries[0].AdminID)
	assert.Equal(t, "system", entries[0].IP)

	t.Run("an account without the purge permission fails", func(t *testing.T) {
		job := NewRetentionJob(e.audit, mod.ID, 24*time.Hour, time.Hour)
		_, err := job.RunOnce(ctx)
		assertCode(t, err, models.ErrForbidden)
	})

	t.Run("zero retention returns immediately", func(t *testing.T) {
		job := NewRetentionJob(e.audit, system.ID, 0, time.Hour)
		job.Run(ctx)
	})
}
