package database

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/database/migrations"
	"github.com/charlesng35/authcore/internal/models"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.User{},
		&models.Role{},
		&models.RefreshToken{},
		&models.VerificationToken{},
		&models.AuditLog{},
		&models.CacheEntry{},
	}
	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
	require.True(t, migrator.HasTable("user_roles"))
	require.True(t, migrator.HasIndex(&models.RefreshToken{}, "TokenHash"))
}

func TestSeedDataRejectsNilHandle(t *testing.T) {
	require.Error(t, SeedData(nil, DefaultRoleName))
}

func TestEmbeddedSQLMigrations(t *testing.T) {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, name := range entries {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		require.True(t, strings.Contains(string(body), "-- +goose Up"), "%s missing up marker", name)
		require.True(t, strings.Contains(string(body), "-- +goose Down"), "%s missing down marker", name)
	}
}

func TestRunSQLMigrationsWrapsErrors(t *testing.T) {
	original := gooseUp
	t.Cleanup(func() { gooseUp = original })

	gooseUp = func(context.Context, *gorm.DB) error { return errors.New("boom") }

	err := RunSQLMigrations(context.Background(), openTestDB(t))
	require.ErrorContains(t, err, "goose up: boom")
}

func TestMigrateRoutesPostgresThroughGoose(t *testing.T) {
	original := gooseUp
	t.Cleanup(func() { gooseUp = original })

	var calls int
	gooseUp = func(_ context.Context, db *gorm.DB) error {
		calls++
		return AutoMigrate(db)
	}

	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, "postgresql", "MEMBER"))
	require.Equal(t, 1, calls)

	var role models.Role
	require.NoError(t, db.Where("name = ?", "MEMBER").Take(&role).Error)

	require.NoError(t, Migrate(context.Background(), db, "sqlite", "MEMBER"))
	require.Equal(t, 1, calls, "non-postgres drivers use AutoMigrate")
}
