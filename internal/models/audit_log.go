package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Audit target types.
const (
	AuditTargetUser       = "user"
	AuditTargetComment    = "comment"
	AuditTargetReport     = "report"
	AuditTargetGroup      = "group"
	AuditTargetPermission = "permission"
)

// purgeSettingKey marks a gorm session as the retention purge, the one path allowed to
// remove audit entries.
const purgeSettingKey = "audit:purge"

// ErrAuditImmutable is returned when something tries to modify the audit log.
var ErrAuditImmutable = errors.New("audit log is append-only")

// AuditDetail is the structured payload of an audit entry, stored as JSON text.
type AuditDetail map[string]any

// Value implements driver.Valuer.
func (d AuditDetail) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *AuditDetail) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = AuditDetail{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("audit detail: unsupported source type %T", src)
	}
	out := AuditDetail{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("audit detail: %w", err)
		}
	}
	*d = out
	return nil
}

// AuditLogEntry records a privileged action. Entries are never updated; the retention
// purge is the only path that removes them.
type AuditLogEntry struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	EventID    string      `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	AdminID    uint        `gorm:"not null;index" json:"admin_id"`
	Admin      *User       `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action     string      `gorm:"size:64;not null;index" json:"action"`
	TargetType string      `gorm:"size:32;not null;index:idx_audit_target" json:"target_type"`
	TargetID   uint        `gorm:"not null;index:idx_audit_target" json:"target_id"`
	Detail     AuditDetail `gorm:"type:text" json:"detail"`
	IP         string      `gorm:"size:64" json:"ip,omitempty"`
	CreatedAt  time.Time   `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (AuditLogEntry) TableName() string {
	return "audit_log"
}

// BeforeUpdate rejects every update.
func (*AuditLogEntry) BeforeUpdate(*gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeDelete rejects deletes outside the retention purge.
func (*AuditLogEntry) BeforeDelete(tx *gorm.DB) error {
	if allowed, ok := tx.Get(purgeSettingKey); ok && allowed == true {
		return nil
	}
	return ErrAuditImmutable
}

// AllowAuditPurge returns a session permitted to delete audit entries.
func AllowAuditPurge(tx *gorm.DB) *gorm.DB {
	return tx.Set(purgeSettingKey, true)
}

// ValidAuditTarget reports whether t is a known audit target type.
func ValidAuditTarget(t string) bool {
	switch t {
	case AuditTargetUser, AuditTargetComment, AuditTargetReport, AuditTargetGroup, AuditTargetPermission:
		return true
	}
	return false
}
