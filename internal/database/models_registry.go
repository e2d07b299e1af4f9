package database

import "github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models, in
// dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Group{},
		&models.Permission{},
		&models.GroupPermission{},
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.CommentHistory{},
		&models.CommentReaction{},
		&models.Report{},
		&models.UserBan{},
		&models.AuditLogEntry{},
	}
}
