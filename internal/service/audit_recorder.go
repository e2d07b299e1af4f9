package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"

	"github.com/google/uuid"
)

// Audit actions.
const (
	ActionCommentEdit      = "comment.edit"
	ActionCommentDelete    = "comment.delete"
	ActionCommentApprove   = "comment.approve"
	ActionCommentUnapprove = "comment.unapprove"
	ActionReportResolve    = "report.resolve"
	ActionUserBan          = "user.ban"
	ActionUserUnban        = "user.unban"
	ActionUserGroupAssign  = "user.group.assign"
	ActionGroupCreate      = "group.create"
	ActionPermissionGrant  = "permission.grant"
	ActionPermissionRevoke = "permission.revoke"
	ActionAuditPurge       = "audit.purge"
)

// AuditInput is one privileged action to record.
type AuditInput struct {
	Actor      Actor
	Action     string
	TargetType string
	TargetID   uint
	Detail     models.AuditDetail
}

// AuditRecorder appends audit entries. Record must be called with the transaction Store
// of the mutation it describes, so both commit or neither does.
type AuditRecorder interface {
	Record(ctx context.Context, tx *repository.Store, in AuditInput) (*models.AuditLogEntry, error)
}

type auditRecorder struct {
	now func() time.Time
}

// NewAuditRecorder returns the store-backed recorder.
func NewAuditRecorder() AuditRecorder {
	return &auditRecorder{now: func() time.Time { return time.Now().UTC() }}
}

func (r *auditRecorder) Record(ctx context.Context, tx *repository.Store, in AuditInput) (*models.AuditLogEntry, error) {
	if in.Actor.Anonymous() {
		return nil, models.NewInternalError(fmt.Errorf("audit %s: no actor", in.Action))
	}
	if !models.ValidAuditTarget(in.TargetType) {
		return nil, models.NewInternalError(fmt.Errorf("audit %s: unknown target type %q", in.Action, in.TargetType))
	}

	entry := &models.AuditLogEntry{
		EventID:    uuid.NewString(),
		AdminID:    in.Actor.ID,
		Action:     in.Action,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Detail:     in.Detail,
		IP:         in.Actor.IP,
		CreatedAt:  r.now(),
	}
	if err := tx.Audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "privileged action",
		"action", in.Action,
		"admin_id", in.Actor.ID,
		"target_type", in.TargetType,
		"target_id", in.TargetID,
	)
	return entry, nil
}
