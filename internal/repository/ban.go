package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
)

// BanRepository is the ban ledger. Rows are never deleted.
type BanRepository interface {
	Create(ctx context.Context, ban *models.UserBan) error
	GetByID(ctx context.Context, id uint) (*models.UserBan, error)
	// Active returns the ban in force for userID at now, or nil.
	Active(ctx context.Context, userID uint, now time.Time) (*models.UserBan, error)
	ListForUser(ctx context.Context, userID uint) ([]models.UserBan, error)
	// Lift marks a ban lifted if it is still in force at now. It reports false otherwise.
	Lift(ctx context.Context, id, liftedByID uint, now time.Time) (bool, error)
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new BanRepository.
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func activeAt(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("lifted_at IS NULL AND (expires_at IS NULL OR expires_at > ?)", now)
}

func (r *banRepository) Create(ctx context.Context, ban *models.UserBan) error {
	if err := r.db.WithContext(ctx).Omit("User", "BannedBy").Create(ban).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *banRepository) GetByID(ctx context.Context, id uint) (*models.UserBan, error) {
	var ban models.UserBan
	if err := r.db.WithContext(ctx).First(&ban, id).Error; err != nil {
		return nil, notFound(err, "Ban", id)
	}
	return &ban, nil
}

func (r *banRepository) Active(ctx context.Context, userID uint, now time.Time) (*models.UserBan, error) {
	var ban models.UserBan
	err := activeAt(r.db.WithContext(ctx).Where("user_id = ?", userID), now).
		Order("created_at DESC").
		First(&ban).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &ban, nil
}

func (r *banRepository) ListForUser(ctx context.Context, userID uint) ([]models.UserBan, error) {
	var bans []models.UserBan
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&bans).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return bans, nil
}

func (r *banRepository) Lift(ctx context.Context, id, liftedByID uint, now time.Time) (bool, error) {
	res := activeAt(r.db.WithContext(ctx).Model(&models.UserBan{}).Where("id = ?", id), now).
		Updates(map[string]interface{}{
			"lifted_at":    now,
			"lifted_by_id": liftedByID,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
