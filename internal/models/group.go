package models

import "time"

// Group is a named bundle of permissions. Every user belongs to exactly one.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// IsDefault marks the group new accounts join. At most one row may carry it.
	IsDefault bool `gorm:"not null;default:false;uniqueIndex:idx_groups_single_default,where:is_default = true" json:"is_default"`
	// AutoApprove publishes members' comments without moderator review.
	AutoApprove bool      `gorm:"not null;default:false" json:"auto_approve"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Permissions []Permission `gorm:"-" json:"permissions,omitempty"`
}

// Permission is a named capability such as comment.approve.
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupPermission joins groups to permissions.
type GroupPermission struct {
	GroupID      uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	PermissionID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (GroupPermission) TableName() string {
	return "group_permissions"
}
