// Package bootstrap prepares the database and cache shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/cache"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/database"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema bool
	SkipRedis   bool
}

// InitRuntime connects to the database, applies the schema when asked, syncs the
// permission catalogue and connects Redis. The Redis client is nil when Redis is
// unreachable or skipped.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	res, err := database.SyncCatalogue(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("sync permission catalogue: %w", err)
	}
	if len(res.PermissionsCreated) > 0 || len(res.GroupsCreated) > 0 {
		middleware.Logger.Info("permission catalogue updated",
			"permissions", res.PermissionsCreated,
			"groups", res.GroupsCreated,
			"grants", res.GrantsCreated)
	}

	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SkipRedis {
		return db, nil, nil
	}
	cache.InitRedis(cfg.RedisURL)
	return db, cache.GetClient(), nil
}

// ensureDevRootAdmin makes sure a development root account exists and sits in the admin
// group. It does nothing outside development or when DEV_BOOTSTRAP_ROOT is off.
func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@derecksnotes.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	if err := validation.ValidatePassword(cfg.DevRootPassword); err != nil {
		return fmt.Errorf("DEV_ROOT_PASSWORD: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.Group
		if err := tx.Where("name = ?", permissions.GroupAdmin).First(&admin).Error; err != nil {
			return fmt.Errorf("load admin group: %w", err)
		}

		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash root password: %w", err)
			}
			root = models.User{
				Username:    username,
				Email:       email,
				Password:    string(hash),
				DisplayName: "Root",
				GroupID:     admin.ID,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		case root.GroupID != admin.ID:
			if err := tx.Model(&root).Update("group_id", admin.ID).Error; err != nil {
				return err
			}
		}

		middleware.Logger.Info("development root admin ensured", "user_id", root.ID, "username", username)
		return nil
	})
}
