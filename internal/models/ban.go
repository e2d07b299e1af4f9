package models

import "time"

// UserBan suspends a user's write capability. Rows are never deleted; a ban ends by
// expiring or by being lifted.
type UserBan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BannedByID uint       `gorm:"not null;index" json:"banned_by_id"`
	BannedBy   *User      `gorm:"foreignKey:BannedByID" json:"banned_by,omitempty"`
	Reason     string     `gorm:"type:text;not null" json:"reason"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
	LiftedAt   *time.Time `json:"lifted_at,omitempty"`
	LiftedByID *uint      `json:"lifted_by_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (UserBan) TableName() string {
	return "user_bans"
}

// ActiveAt reports whether the ban is in force at the given instant.
func (b *UserBan) ActiveAt(now time.Time) bool {
	if b.LiftedAt != nil {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
