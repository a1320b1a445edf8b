package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

// RefreshTokenStore persists session rows. A row is active while it is not
// revoked and its expiry lies after the supplied instant.
type RefreshTokenStore interface {
	Save(ctx context.Context, token *models.RefreshToken) error
	FindActiveByHashAndUser(ctx context.Context, hash, userID string, now time.Time) (*models.RefreshToken, error)
	FindAllActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.RefreshToken, error)
	BulkRevoke(ctx context.Context, ids []string, at time.Time) (int64, error)
	DeleteAllExpiredBefore(ctx context.Context, now time.Time) (int64, error)
	// RevokeIfActive revokes one row only if it is still unrevoked and reports
	// whether this call performed the transition.
	RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error)
	Touch(ctx context.Context, id string, at time.Time) error
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

// GormRefreshTokenStore implements RefreshTokenStore with gorm.
type GormRefreshTokenStore struct {
	db *gorm.DB
}

// NewGormRefreshTokenStore constructs the gorm backed store.
func NewGormRefreshTokenStore(db *gorm.DB) (*GormRefreshTokenStore, error) {
	if db == nil {
		return nil, errors.New("refresh token store: db is required")
	}
	return &GormRefreshTokenStore{db: db}, nil
}

func (s *GormRefreshTokenStore) Save(ctx context.Context, token *models.RefreshToken) error {
	if token == nil {
		return errors.New("refresh token store: token is nil")
	}
	if err := s.db.WithContext(ctx).Save(token).Error; err != nil {
		return fmt.Errorf("refresh token store: save: %w", err)
	}
	return nil
}

// FindActiveByHashAndUser returns ErrSessionNotFound when no active row matches.
func (s *GormRefreshTokenStore) FindActiveByHashAndUser(ctx context.Context, hash, userID string, now time.Time) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := s.active(ctx, now).
		Where("token_hash = ? AND user_id = ?", hash, userID).
		Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("refresh token store: find by hash: %w", err)
	}
	return &token, nil
}

// FindAllActiveForUser lists active rows, most recently used first.
func (s *GormRefreshTokenStore) FindAllActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.RefreshToken, error) {
	var tokens []models.RefreshToken
	err := s.active(ctx, now).
		Where("user_id = ?", userID).
		Order("COALESCE(last_used_at, created_at) DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("refresh token store: list active: %w", err)
	}
	return tokens, nil
}

func (s *GormRefreshTokenStore) BulkRevoke(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id IN ? AND revoked = ?", ids, false).
		Updates(map[string]any{"revoked": true, "revoked_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("refresh token store: bulk revoke: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAllExpiredBefore removes expired rows in a single statement, revoked or not.
func (s *GormRefreshTokenStore) DeleteAllExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("refresh token store: delete expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormRefreshTokenStore) RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]any{"revoked": true, "revoked_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("refresh token store: revoke: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormRefreshTokenStore) Touch(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
	if err != nil {
		return fmt.Errorf("refresh token store: touch: %w", err)
	}
	return nil
}

func (s *GormRefreshTokenStore) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	if err := s.active(ctx, now).Model(&models.RefreshToken{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("refresh token store: count active: %w", err)
	}
	return count, nil
}

func (s *GormRefreshTokenStore) active(ctx context.Context, now time.Time) *gorm.DB {
	return s.db.WithContext(ctx).Where("revoked = ? AND expires_at > ?", false, now)
}
