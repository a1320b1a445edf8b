package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
)

func TestGormUserStore_CreateAndFind(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store, err := NewGormUserStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	role, err := store.GetOrCreateDefaultRole(ctx, "USER")
	require.NoError(t, err)

	user := &models.User{Email: "  Grace@Example.COM ", Password: "digest", Roles: []models.Role{*role}}
	require.NoError(t, store.Create(ctx, user))
	require.Equal(t, "grace@example.com", user.Email)

	exists, err := store.ExistsByEmail(ctx, "GRACE@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	found, err := store.FindByEmailWithRoles(ctx, "grace@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
	require.Equal(t, []string{"USER"}, found.RoleNames())

	byID, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, byID.Roles, 1)

	_, err = store.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = store.FindByEmailWithRoles(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormUserStore_DuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormUserStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.User{Email: "dup@example.com", Password: "x"}))
	err = store.Create(ctx, &models.User{Email: "DUP@example.com", Password: "y"})
	require.ErrorIs(t, err, ErrEmailAlreadyExists)

	other := &models.User{Email: "other@example.com", Password: "z"}
	require.NoError(t, store.Create(ctx, other))
	require.ErrorIs(t, store.SetEmail(ctx, other.ID, "DUP@example.com"), ErrEmailAlreadyExists)
}

func TestGormUserStore_ColumnUpdatesLeaveOtherFields(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store, err := NewGormUserStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	role, err := store.GetOrCreateDefaultRole(ctx, "USER")
	require.NoError(t, err)
	user := &models.User{FirstName: "Keep", Email: "keep@example.com", Password: "old-digest", Roles: []models.Role{*role}}
	require.NoError(t, store.Create(ctx, user))

	flipped, err := store.MarkVerified(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, flipped)
	flipped, err = store.MarkVerified(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, flipped, "second verification is a no-op")

	require.NoError(t, store.SetPassword(ctx, user.ID, "new-digest"))
	require.NoError(t, store.SetEmail(ctx, user.ID, " Moved@Example.com "))

	reloaded, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.Verified)
	require.Equal(t, "new-digest", reloaded.Password)
	require.Equal(t, "moved@example.com", reloaded.Email)
	require.Equal(t, "Keep", reloaded.FirstName)
	require.Len(t, reloaded.Roles, 1)

	require.ErrorIs(t, store.SetPassword(ctx, "missing", "digest"), ErrUserNotFound)
	require.ErrorIs(t, store.SetEmail(ctx, "missing", "x@example.com"), ErrUserNotFound)
}

func TestGormUserStore_UpdateLastLoginGuardsDigest(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormUserStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	user := &models.User{Email: "login@example.com", Password: "digest-1"}
	require.NoError(t, store.Create(ctx, user))
	at := time.Now().UTC().Truncate(time.Second)

	ok, err := store.UpdateLastLogin(ctx, user.ID, "digest-1", at)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.SetPassword(ctx, user.ID, "digest-2"))
	ok, err = store.UpdateLastLogin(ctx, user.ID, "digest-1", at.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, ok, "a stale digest must not match")

	reloaded, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "digest-2", reloaded.Password)
	require.NotNil(t, reloaded.LastLoginAt)
	require.True(t, at.Equal(reloaded.LastLoginAt.UTC()))
}

func TestGormUserStore_GetOrCreateDefaultRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormUserStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.GetOrCreateDefaultRole(ctx, "MEMBER")
	require.NoError(t, err)
	second, err := store.GetOrCreateDefaultRole(ctx, " MEMBER ")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = store.GetOrCreateDefaultRole(ctx, "  ")
	require.Error(t, err)

	_, err = NewGormUserStore(nil)
	require.Error(t, err)
}

func TestIsUniqueConstraintError(t *testing.T) {
	require.False(t, isUniqueConstraintError(nil))
	require.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
	require.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	require.True(t, isUniqueConstraintError(&mysql.MySQLError{Number: 1062}))
	require.True(t, isUniqueConstraintError(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	require.False(t, isUniqueConstraintError(errors.New("connection refused")))

	// Other constraint failures are not email collisions.
	require.False(t, isUniqueConstraintError(errors.New("NOT NULL constraint failed: users.email")))
	require.False(t, isUniqueConstraintError(errors.New("FOREIGN KEY constraint failed")))
	require.False(t, isUniqueConstraintError(errors.New("CHECK constraint failed: verified")))
	require.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23502"}))
}
