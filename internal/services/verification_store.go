package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

// VerificationTokenStore persists verification codes.
type VerificationTokenStore interface {
	Save(ctx context.Context, token *models.VerificationToken) error
	// FindByCode returns every row carrying code, newest first.
	FindByCode(ctx context.Context, code string) ([]models.VerificationToken, error)
	// MarkUsed flips used only while it is still false and reports whether this call did so.
	MarkUsed(ctx context.Context, id string) (bool, error)
	DeleteExpiredAndUsed(ctx context.Context, now time.Time) (int64, error)
}

// GormVerificationTokenStore implements VerificationTokenStore with gorm.
type GormVerificationTokenStore struct {
	db *gorm.DB
}

// NewGormVerificationTokenStore constructs the gorm backed store.
func NewGormVerificationTokenStore(db *gorm.DB) (*GormVerificationTokenStore, error) {
	if db == nil {
		return nil, errors.New("verification store: db is required")
	}
	return &GormVerificationTokenStore{db: db}, nil
}

func (s *GormVerificationTokenStore) Save(ctx context.Context, token *models.VerificationToken) error {
	if err := s.db.WithContext(ctx).Save(token).Error; err != nil {
		return fmt.Errorf("verification store: save: %w", err)
	}
	return nil
}

func (s *GormVerificationTokenStore) FindByCode(ctx context.Context, code string) ([]models.VerificationToken, error) {
	var tokens []models.VerificationToken
	err := s.db.WithContext(ctx).
		Where("code = ?", code).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("verification store: find by code: %w", err)
	}
	return tokens, nil
}

func (s *GormVerificationTokenStore) MarkUsed(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.VerificationToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return false, fmt.Errorf("verification store: mark used: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteExpiredAndUsed removes rows that are both expired and used in one statement.
func (s *GormVerificationTokenStore) DeleteExpiredAndUsed(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? AND used = ?", now, true).
		Delete(&models.VerificationToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("verification store: delete expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}
