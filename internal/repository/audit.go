package repository

import (
	"context"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
)

// AuditFilter narrows an audit listing. Zero fields match everything.
type AuditFilter struct {
	AdminID    uint
	Action     string
	TargetType string
	TargetID   uint
	Since      *time.Time
	Until      *time.Time
}

// AuditRepository is the append-only audit sink.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	List(ctx context.Context, filter AuditFilter, limit, offset int) ([]models.AuditLogEntry, int64, error)
	// PurgeBefore removes entries created before cutoff, sparing keepID. It is the only
	// delete path on the audit log.
	PurgeBefore(ctx context.Context, cutoff time.Time, keepID uint) (int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := r.db.WithContext(ctx).Omit("Admin").Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, limit, offset int) ([]models.AuditLogEntry, int64, error) {
	limit, offset = ClampPage(limit, offset)
	base := r.db.WithContext(ctx).Model(&models.AuditLogEntry{})
	if filter.AdminID != 0 {
		base = base.Where("admin_id = ?", filter.AdminID)
	}
	if filter.Action != "" {
		base = base.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		base = base.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		base = base.Where("target_id = ?", filter.TargetID)
	}
	if filter.Since != nil {
		base = base.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		base = base.Where("created_at < ?", *filter.Until)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var entries []models.AuditLogEntry
	if err := base.Preload("Admin").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return entries, total, nil
}

func (r *auditRepository) PurgeBefore(ctx context.Context, cutoff time.Time, keepID uint) (int64, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		// Scoped to the surrounding transaction; the audit_log trigger checks it.
		if err := db.Exec("SELECT set_config('app.audit_purge', 'on', true)").Error; err != nil {
			return 0, models.NewInternalError(err)
		}
	}

	res := models.AllowAuditPurge(db).
		Where("created_at < ? AND id <> ?", cutoff, keepID).
		Delete(&models.AuditLogEntry{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
