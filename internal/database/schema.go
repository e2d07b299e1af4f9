package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// IntegrityGuards are the constraints only the SQL migrations install. AutoMigrate builds
// tables from the models and knows nothing about them.
var IntegrityGuards = []string{
	"comments depth range check",
	"comment_history append-only trigger",
	"audit_log append-only trigger",
	"one pending report per reporter and comment",
	"single default group",
}

// SchemaStatus describes what ApplySchema would do and which migrations are pending.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	// MissingGuards lists the IntegrityGuards the chosen mode leaves out.
	MissingGuards     []string
	AppliedVersions   []int
	PendingMigrations []Migration
}

// schemaPlan is the resolved DB_SCHEMA_MODE for one environment.
type schemaPlan struct {
	mode     string
	env      string
	prodLike bool
	runSQL   bool
	runAuto  bool
}

func (p schemaPlan) missingGuards() []string {
	if p.runSQL {
		return nil
	}
	return append([]string(nil), IntegrityGuards...)
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// planSchema resolves the schema mode. Hybrid runs the SQL migrations everywhere and lets
// AutoMigrate fill in model columns outside production. Auto skips the SQL migrations, so
// production-like environments need DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE to run without the
// comment history and audit log guards.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{
		mode:     strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		env:      cfg.Env,
		prodLike: isProdLikeEnv(cfg.Env),
	}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}

	switch p.mode {
	case SchemaModeSQL:
		p.runSQL = true
	case SchemaModeHybrid:
		p.runSQL, p.runAuto = true, !p.prodLike
	case SchemaModeAuto:
		if p.prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q: audit and history guards would be missing; set DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true to override", cfg.Env)
		}
		p.runAuto = true
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", p.mode)
	}
	return p, nil
}

// AutoMigrate creates or updates tables for every persistent model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema runs SQL migrations and/or AutoMigrate according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if plan.runAuto {
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.mode), slog.String("env", plan.env))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if missing := plan.missingGuards(); len(missing) > 0 {
		level := slog.LevelInfo
		if plan.prodLike {
			level = slog.LevelWarn
		}
		middleware.Logger.Log(ctx, level, "schema applied without SQL integrity guards",
			slog.String("env", plan.env), slog.Any("missing", missing))
	}

	return nil
}

// GetSchemaStatus reports the schema policy and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        plan.env,
		WillRunSQL:         plan.runSQL,
		WillRunAutoMigrate: plan.runAuto,
		MissingGuards:      plan.missingGuards(),
	}
	if !plan.runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
