// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agro-herders-service/internal/repository"
)

const DefaultTestTimeout = 5 * time.Second

// NewDB returns an in-memory SQLite database with every table migrated.
// The pool is pinned to one connection because each SQLite :memory:
// connection is its own database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(repository.Models()...), "failed to migrate")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Options returns repository options suitable for tests: short timeout and
// no retries.
func Options() repository.Options {
	return repository.Options{QueryTimeout: 2 * time.Second}
}
