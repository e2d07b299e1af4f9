// Package testutil provides shared fixtures for tests that need a real store.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/database"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestPassword is the plaintext password of every user created by CreateUser.
const TestPassword = "Correct-Horse-42"

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the full schema and the default
// permission catalogue.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, database.AutoMigrate(db))
	_, err = database.SyncCatalogue(context.Background(), db)
	require.NoError(t, err)
	return db
}

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// CreateUser inserts a user in the named group.
func CreateUser(t testing.TB, db *gorm.DB, username, group string) *models.User {
	t.Helper()

	var g models.Group
	require.NoError(t, db.Where("name = ?", group).First(&g).Error, "group %s", group)

	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    passwordHash,
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
		GroupID:     g.ID,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
