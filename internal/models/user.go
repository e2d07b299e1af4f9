package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account on the site. Username and email are unique among live accounts.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"size:64;not null;uniqueIndex:idx_users_username_live,where:deleted_at IS NULL" json:"username"`
	Email       string         `gorm:"size:255;not null;uniqueIndex:idx_users_email_live,where:deleted_at IS NULL" json:"-"`
	Password    string         `gorm:"not null" json:"-"`
	DisplayName string         `gorm:"size:128" json:"display_name"`
	Bio         string         `gorm:"type:text" json:"bio"`
	GroupID     uint           `gorm:"not null;index" json:"group_id"`
	Group       *Group         `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserSummary is the public author view embedded in rendered threads.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// Summary returns the public fields of the user.
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}
