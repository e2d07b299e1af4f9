package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/database"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type pgEnv struct {
	host string
	port string
	user string
	pass string
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func readPGEnv() pgEnv {
	return pgEnv{
		host: getEnvOrDefault("DB_HOST", "localhost"),
		port: getEnvOrDefault("DB_PORT", "5432"),
		user: getEnvOrDefault("DB_USER", "comments"),
		pass: getEnvOrDefault("DB_PASSWORD", "comments"),
	}
}

func maintenanceDSN(cfg pgEnv, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", cfg.user, cfg.pass, cfg.host, cfg.port, dbName)
}

// NewPostgresDB creates a throwaway PostgreSQL database, applies the embedded SQL
// migrations and drops it when the test ends. The permission catalogue is not synced.
// Tests are skipped unless TEST_POSTGRES is set.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()
	if os.Getenv("TEST_POSTGRES") == "" || testing.Short() {
		t.Skip("TEST_POSTGRES not set")
	}

	cfg := readPGEnv()
	dbName := fmt.Sprintf("comments_test_%d", time.Now().UnixNano())

	sqlDB, err := sql.Open("pgx", maintenanceDSN(cfg, "postgres"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	_, err = sqlDB.ExecContext(ctx, `CREATE DATABASE `+dbName)
	require.NoError(t, err, "create ephemeral db")
	t.Cleanup(func() {
		_, _ = sqlDB.ExecContext(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, dbName)
		_, _ = sqlDB.ExecContext(ctx, `DROP DATABASE IF EXISTS `+dbName)
	})

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.host, cfg.port, cfg.user, cfg.pass, dbName)
	db, err := gorm.Open(postgres.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	// Registered after the DROP so it runs first.
	t.Cleanup(func() {
		if raw, err := db.DB(); err == nil {
			_ = raw.Close()
		}
	})

	require.NoError(t, database.RunMigrations(ctx, db))
	return db
}
