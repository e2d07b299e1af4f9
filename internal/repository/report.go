package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
)

// ReportRepository defines persistence operations for comment reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	HasPending(ctx context.Context, reporterID, commentID uint) (bool, error)
	// Resolve moves a pending report to a terminal status. It reports false when the
	// report was not pending.
	Resolve(ctx context.Context, id uint, status string, reviewerID uint, note string, at time.Time) (bool, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Report, int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Omit("Reporter", "Comment", "Reviewer").Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("You already have a pending report on this comment")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, notFound(err, "Report", id)
	}
	return &report, nil
}

func (r *reportRepository) HasPending(ctx context.Context, reporterID, commentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND comment_id = ? AND status = ?", reporterID, commentID, models.ReportStatusPending).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *reportRepository) Resolve(ctx context.Context, id uint, status string, reviewerID uint, note string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportStatusPending).
		Updates(map[string]interface{}{
			"status":          status,
			"reviewer_id":     reviewerID,
			"reviewed_at":     at,
			"resolution_note": note,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *reportRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Report, int64, error) {
	limit, offset = ClampPage(limit, offset)
	base := r.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		base = base.Where("status = ?", status)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var reports []models.Report
	if err := base.Preload("Reporter").Preload("Comment").Preload("Reviewer").
		Order("created_at ASC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&reports).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return reports, total, nil
}
