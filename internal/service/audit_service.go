package service

import (
	"context"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/observability"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
)

// PurgeResult reports one retention purge.
type PurgeResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Removed int64     `json:"removed"`
	EntryID uint      `json:"entry_id"`
}

// AuditService reads the audit log and runs the retention purge.
type AuditService struct {
	store *repository.Store
	authz *Authorizer
	audit AuditRecorder
	now   func() time.Time
}

// NewAuditService returns an AuditService.
func NewAuditService(store *repository.Store, authz *Authorizer, audit AuditRecorder) *AuditService {
	return &AuditService{
		store: store,
		authz: authz,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, actor Actor, filter repository.AuditFilter, limit, offset int) (*Page[models.AuditLogEntry], error) {
	if err := s.authz.Require(ctx, actor, permissions.AdminAuditView); err != nil {
		return nil, err
	}
	if filter.TargetType != "" && !models.ValidAuditTarget(filter.TargetType) {
		return nil, models.NewValidationError("Unknown target type")
	}
	limit, offset = repository.ClampPage(limit, offset)
	items, total, err := s.store.Audit.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page[models.AuditLogEntry]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Purge removes entries older than olderThan. The purge is recorded before anything is
// removed, in the same transaction, and that record always survives.
func (s *AuditService) Purge(ctx context.Context, actor Actor, olderThan time.Duration) (*PurgeResult, error) {
	if olderThan <= 0 {
		return nil, models.NewValidationError("Retention horizon must be positive")
	}
	if err := s.authz.Require(ctx, actor, permissions.AdminAuditPurge); err != nil {
		return nil, err
	}

	result := &PurgeResult{Cutoff: s.now().Add(-olderThan)}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		entry, err := s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionAuditPurge,
			TargetType: models.AuditTargetUser,
			TargetID:   actor.ID,
			Detail: models.AuditDetail{
				"cutoff":     result.Cutoff.Format(time.RFC3339),
				"older_than": olderThan.String(),
			},
		})
		if err != nil {
			return err
		}
		result.EntryID = entry.ID
		result.Removed, err = tx.Audit.PurgeBefore(ctx, result.Cutoff, entry.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	countAction(ActionAuditPurge)
	observability.AuditEntriesPurged.Add(float64(result.Removed))
	return result, nil
}

// RetentionJob purges the audit log on an interval as a configured system account.
type RetentionJob struct {
	audit     *AuditService
	actor     Actor
	retention time.Duration
	interval  time.Duration
}

// NewRetentionJob returns a job purging entries older than retention every interval.
func NewRetentionJob(audit *AuditService, actorID uint, retention, interval time.Duration) *RetentionJob {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{
		audit:     audit,
		actor:     Actor{ID: actorID, IP: "system"},
		retention: retention,
		interval:  interval,
	}
}

// RunOnce performs a single purge. The actor goes through the same permission check as
// an admin request.
func (j *RetentionJob) RunOnce(ctx context.Context) (*PurgeResult, error) {
	res, err := j.audit.Purge(ctx, j.actor, j.retention)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "audit retention purge failed", "actor_id", j.actor.ID, "error", err)
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "audit retention purge complete",
		"removed", res.Removed, "cutoff", res.Cutoff)
	return res, nil
}

// Run purges immediately and then on every tick until ctx is done. A zero retention
// disables the job.
func (j *RetentionJob) Run(ctx context.Context) {
	if j.retention <= 0 {
		middleware.Logger.InfoContext(ctx, "audit retention disabled")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	_, _ = j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}
