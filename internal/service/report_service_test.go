package service

import (
	"context"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_Workflow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author", permissions.GroupTrusted)
	u := e.user(t, "reporter", permissions.GroupUser)
	mod := e.user(t, "moder", permissions.GroupModerator)
	c := e.post(t, author, "questionable", nil)

	first, err := e.reports.Create(ctx, u, CreateReportInput{CommentID: c.ID, Reason: "spam", Details: "  buy now  "})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, first.Status)
	assert.Equal(t, "buy now", first.Details)

	_, err = e.reports.Create(ctx, u, CreateReportInput{CommentID: c.ID, Reason: "harassment"})
	assertCode(t, err, models.ErrConflict)

	resolved, err := e.reports.Resolve(ctx, mod, first.ID, ResolveReportInput{Outcome: "dismissed", Note: "not spam"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDismissed, resolved.Status)
	require.NotNil(t, resolved.ReviewerID)
	assert.Equal(t, mod.ID, *resolved.ReviewerID)
	assert.NotNil(t, resolved.ReviewedAt)
	assert.Equal(t, "not spam", resolved.ResolutionNote)

	entries := e.auditEntries(t, ActionReportResolve)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditTargetReport, entries[0].TargetType)
	assert.Equal(t, first.ID, entries[0].TargetID)

	second, err := e.reports.Create(ctx, u, CreateReportInput{CommentID: c.ID, Reason: "spam"})
	require.NoError(t, err, "a resolved report frees the reporter to report again")
	assert.NotEqual(t, first.ID, second.ID)

	page, err := e.reports.List(ctx, mod, models.ReportStatusPending, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, second.ID, page.Items[0].ID)

	page, err = e.reports.List(ctx, mod, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestReportService_TerminalStatesAreFinal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author", permissions.GroupTrusted)
	u := e.user(t, "reporter", permissions.GroupUser)
	mod := e.user(t, "moder", permissions.GroupModerator)
	c := e.post(t, author, "questionable", nil)

	r, err := e.reports.Create(ctx, u, CreateReportInput{CommentID: c.ID, Reason: "other"})
	require.NoError(t, err)
	_, err = e.reports.Resolve(ctx, mod, r.ID, ResolveReportInput{Outcome: "reviewed"})
	require.NoError(t, err)

	for _, outcome := range []string{"reviewed", "dismissed"} {
		_, err = e.reports.Resolve(ctx, mod, r.ID, ResolveReportInput{Outcome: outcome})
		assertCode(t, err, models.ErrInvalidStateTransition)
	}
	assert.Len(t, e.auditEntries(t, ActionReportResolve), 1)

	_, err = e.reports.Resolve(ctx, mod, 9999, ResolveReportInput{Outcome: "reviewed"})
	assertCode(t, err, models.ErrNotFound)

	_, err = e.reports.Resolve(ctx, mod, r.ID, ResolveReportInput{Outcome: "pending"})
	assertCode(t, err, models.ErrValidation)
}

func TestReportService_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author", permissions.GroupTrusted)
	u := e.user(t, "reporter", permissions.GroupUser)
	c := e.post(t, author, "fine", nil)

	tests := []struct {
		name  string
		actor Actor
		in    CreateReportInput
		want  *models.AppError
	}{
		{"unknown reason", u, CreateReportInput{CommentID: c.ID, Reason: "boring"}, models.ErrValidation},
		{"anonymous", Actor{}, CreateReportInput{CommentID: c.ID, Reason: "spam"}, models.ErrUnauthenticated},
		{"missing comment", u, CreateReportInput{CommentID: 9999, Reason: "spam"}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.reports.Create(ctx, tt.actor, tt.in)
			assertCode(t, err, tt.want)
		})
	}

	t.Run("users cannot resolve or list", func(t *testing.T) {
		r, err := e.reports.Create(ctx, u, CreateReportInput{CommentID: c.ID, Reason: "spam"})
		require.NoError(t, err)
		_, err = e.reports.Resolve(ctx, u, r.ID, ResolveReportInput{Outcome: "dismissed"})
		assertCode(t, err, models.ErrForbidden)
		_, err = e.reports.List(ctx, u, "", 10, 0)
		assertCode(t, err, models.ErrForbidden)
	})
}

func TestReportService_AuditFailureRollsBack(t *testing.T) {
	e := newEnvWithRecorder(t, failingRecorder{})
	ctx := context.Background()
	author := e.user(t, "author", permissions.GroupTrusted)
	u := e.user(t, "reporter", permissions.GroupUser)
	mod := e.user(t, "moder", permissions.GroupModerator)
	c := e.post(t, author, "questionable", nil)

	r, err := e.reports.Create(ctx, u, CreateReportInput{CommentID: c.ID, Reason: "spam"})
	require.NoError(t, err, "filing a report is not audited")

	_, err = e.reports.Resolve(ctx, mod, r.ID, ResolveReportInput{Outcome: "reviewed"})
	assert.ErrorIs(t, err, errAuditDown)

	got, err := e.store.Reports.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, got.Status)
	assert.Nil(t, got.ReviewerID)
	assert.Zero(t, e.auditCount(t))
}
