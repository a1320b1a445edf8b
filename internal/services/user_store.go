package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

var (
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = errors.New("user: not found")
	// ErrEmailAlreadyExists is returned when a write collides with the unique email index.
	ErrEmailAlreadyExists = errors.New("user: email already exists")
)

// UserStore is the user collaborator consumed by the account service.
type UserStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmailWithRoles(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// UpdateLastLogin stamps the login time only while the stored digest still
	// equals digest. It reports false when the password changed in between.
	UpdateLastLogin(ctx context.Context, id, digest string, at time.Time) (bool, error)
	SetPassword(ctx context.Context, id, digest string) error
	SetEmail(ctx context.Context, id, email string) error
	// MarkVerified flips verified from false to true. It reports false when the
	// user was already verified.
	MarkVerified(ctx context.Context, id string) (bool, error)
}

// RoleStore is the role collaborator consumed by the account service.
type RoleStore interface {
	GetOrCreateDefaultRole(ctx context.Context, name string) (*models.Role, error)
}

// GormUserStore implements UserStore and RoleStore with gorm.
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore constructs the gorm backed user and role store.
func NewGormUserStore(db *gorm.DB) (*GormUserStore, error) {
	if db == nil {
		return nil, errors.New("user store: db is required")
	}
	return &GormUserStore{db: db}, nil
}

// NormaliseEmail lowercases and trims an address before storage or lookup.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *GormUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", NormaliseEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("user store: exists by email: %w", err)
	}
	return count > 0, nil
}

func (s *GormUserStore) FindByEmailWithRoles(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Where("email = ?", NormaliseEmail(email)).
		Take(&user).Error
	return s.found(&user, err)
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Take(&user, "id = ?", id).Error
	return s.found(&user, err)
}

// Create inserts user together with its role associations.
func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	user.Email = NormaliseEmail(user.Email)
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("user store: create: %w", err)
	}
	return nil
}

func (s *GormUserStore) UpdateLastLogin(ctx context.Context, id, digest string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND password = ?", id, digest).
		UpdateColumn("last_login_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("user store: update last login: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormUserStore) SetPassword(ctx context.Context, id, digest string) error {
	return s.updateColumn(ctx, id, "password", digest)
}

func (s *GormUserStore) SetEmail(ctx context.Context, id, email string) error {
	return s.updateColumn(ctx, id, "email", NormaliseEmail(email))
}

func (s *GormUserStore) MarkVerified(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	if res.Error != nil {
		return false, fmt.Errorf("user store: mark verified: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// updateColumn writes one column of one user, leaving every other column as
// the database currently has it.
func (s *GormUserStore) updateColumn(ctx context.Context, id, column string, value any) error {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("user store: update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormUserStore) GetOrCreateDefaultRole(ctx context.Context, name string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("role store: role name is required")
	}

	var role models.Role
	err := s.db.WithContext(ctx).
		Where(models.Role{Name: name}).
		Attrs(models.Role{Description: "Default role for registered users"}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, fmt.Errorf("role store: get or create %q: %w", name, err)
	}
	return &role, nil
}

func (s *GormUserStore) found(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user store: find: %w", err)
	}
	return user, nil
}
