package service

import (
	"context"
	"strings"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/notifications"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/validation"
)

// CreateReportInput is a user's flag on a comment.
type CreateReportInput struct {
	CommentID uint
	Reason    string
	Details   string
}

// ResolveReportInput closes a pending report. Outcome is reviewed or dismissed.
type ResolveReportInput struct {
	Outcome string
	Note    string
}

// ReportService runs the report workflow: pending, then reviewed or dismissed, once.
type ReportService struct {
	store    *repository.Store
	authz    *Authorizer
	audit    AuditRecorder
	notifier *notifications.Notifier
	now      func() time.Time
}

// NewReportService returns a ReportService. notifier may be nil.
func NewReportService(store *repository.Store, authz *Authorizer, audit AuditRecorder, notifier *notifications.Notifier) *ReportService {
	return &ReportService{
		store:    store,
		authz:    authz,
		audit:    audit,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create files a report. A reporter may hold one pending report per comment.
func (s *ReportService) Create(ctx context.Context, actor Actor, in CreateReportInput) (*models.Report, error) {
	reason := strings.ToLower(strings.TrimSpace(in.Reason))
	if _, ok := models.ReportReasons[reason]; !ok {
		return nil, models.NewValidationError("Unknown report reason")
	}
	details, err := validation.NormalizeReportDetails(in.Details)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.authz.Require(ctx, actor, permissions.ReportCreate); err != nil {
		return nil, err
	}
	if err := ensureNotBanned(ctx, s.store, actor.ID, s.now()); err != nil {
		return nil, err
	}

	comment, err := s.store.Comments.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	vis, err := s.authz.Visibility(ctx, actor)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted() || !vis.Allows(comment) {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}

	pending, err := s.store.Reports.HasPending(ctx, actor.ID, comment.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.NewConflictError("You already have a pending report on this comment")
	}

	report := &models.Report{
		ReporterID: actor.ID,
		CommentID:  comment.ID,
		Reason:     reason,
		Details:    details,
		Status:     models.ReportStatusPending,
	}
	// A concurrent duplicate fails on the partial unique index with CONFLICT.
	if err := s.store.Reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Event{
		Type:       notifications.EventReportCreated,
		ActorID:    actor.ID,
		TargetType: models.AuditTargetReport,
		TargetID:   report.ID,
		Data:       map[string]any{"comment_id": comment.ID, "reason": reason},
	})
	return report, nil
}

// Resolve moves a pending report to its terminal status.
func (s *ReportService) Resolve(ctx context.Context, actor Actor, reportID uint, in ResolveReportInput) (*models.Report, error) {
	outcome := strings.ToLower(strings.TrimSpace(in.Outcome))
	if outcome != models.ReportStatusReviewed && outcome != models.ReportStatusDismissed {
		return nil, models.NewValidationError("Outcome must be reviewed or dismissed")
	}
	note := strings.TrimSpace(in.Note)
	if len(note) > validation.MaxReportDetailsLength {
		return nil, models.NewValidationError("Resolution note too long")
	}
	if err := s.authz.Require(ctx, actor, permissions.ReportResolve); err != nil {
		return nil, err
	}

	var resolved *models.Report
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Reports.Resolve(ctx, reportID, outcome, actor.ID, note, s.now())
		if err != nil {
			return err
		}
		if !ok {
			// Either missing or already terminal; GetByID tells which.
			if _, err := tx.Reports.GetByID(ctx, reportID); err != nil {
				return err
			}
			return models.NewInvalidStateError("Report has already been resolved")
		}
		resolved, err = tx.Reports.GetByID(ctx, reportID)
		if err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionReportResolve,
			TargetType: models.AuditTargetReport,
			TargetID:   reportID,
			Detail: models.AuditDetail{
				"outcome":    outcome,
				"comment_id": resolved.CommentID,
				"note":       note,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	countAction(ActionReportResolve)
	return resolved, nil
}

// List returns reports filtered by status, oldest first. An empty status lists all.
func (s *ReportService) List(ctx context.Context, actor Actor, status string, limit, offset int) (*Page[models.Report], error) {
	if err := s.authz.Require(ctx, actor, permissions.ReportView); err != nil {
		return nil, err
	}
	switch status {
	case "", models.ReportStatusPending, models.ReportStatusReviewed, models.ReportStatusDismissed:
	default:
		return nil, models.NewValidationError("Unknown report status")
	}
	limit, offset = repository.ClampPage(limit, offset)
	items, total, err := s.store.Reports.List(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page[models.Report]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}
