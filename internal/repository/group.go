package repository

import (
	"context"
	"errors"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository defines persistence operations for groups and their permission grants.
type GroupRepository interface {
	List(ctx context.Context) ([]models.Group, error)
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetDefault(ctx context.Context) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	PermissionNames(ctx context.Context, groupID uint) ([]string, error)
	// UserPermissionNames resolves user → group → permission names in one query.
	// A missing user or group yields an empty set.
	UserPermissionNames(ctx context.Context, userID uint) ([]string, error)
	UserHasPermission(ctx context.Context, userID uint, name string) (bool, error)
	GetPermission(ctx context.Context, name string) (*models.Permission, error)
	// Grant returns false when the grant already existed.
	Grant(ctx context.Context, groupID, permissionID uint) (bool, error)
	// Revoke returns false when there was nothing to revoke.
	Revoke(ctx context.Context, groupID, permissionID uint) (bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository returns a new GroupRepository implementation.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, notFound(err, "Group", id)
	}
	return &group, nil
}

func (r *groupRepository) GetDefault(ctx context.Context) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("is_default = ?", true).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInternalError(errors.New("no default group configured"))
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("A group with that name already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *groupRepository) PermissionNames(ctx context.Context, groupID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN group_permissions ON group_permissions.permission_id = permissions.id").
		Where("group_permissions.group_id = ?", groupID).
		Order("permissions.name ASC").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return names, nil
}

func (r *groupRepository) userPermissions(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN group_permissions ON group_permissions.permission_id = permissions.id").
		Joins("JOIN users ON users.group_id = group_permissions.group_id").
		Where("users.id = ? AND users.deleted_at IS NULL", userID)
}

func (r *groupRepository) UserPermissionNames(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	if err := r.userPermissions(ctx, userID).Order("permissions.name ASC").Pluck("permissions.name", &names).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return names, nil
}

func (r *groupRepository) UserHasPermission(ctx context.Context, userID uint, name string) (bool, error) {
	var count int64
	if err := r.userPermissions(ctx, userID).Where("permissions.name = ?", name).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *groupRepository) GetPermission(ctx context.Context, name string) (*models.Permission, error) {
	var perm models.Permission
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&perm).Error; err != nil {
		return nil, notFound(err, "Permission", name)
	}
	return &perm, nil
}

func (r *groupRepository) Grant(ctx context.Context, groupID, permissionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GroupPermission{GroupID: groupID, PermissionID: permissionID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *groupRepository) Revoke(ctx context.Context, groupID, permissionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND permission_id = ?", groupID, permissionID).
		Delete(&models.GroupPermission{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
