package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

// DefaultRoleName is assigned to newly registered users unless configured otherwise.
const DefaultRoleName = "USER"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.RefreshToken{},
		&models.VerificationToken{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData ensures the default role exists.
func SeedData(db *gorm.DB, defaultRole string) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	name := strings.TrimSpace(defaultRole)
	if name == "" {
		name = DefaultRoleName
	}

	role := models.Role{
		Name:        name,
		Description: "Standard user access",
	}
	return db.Where(models.Role{Name: name}).Attrs(role).FirstOrCreate(&models.Role{}).Error
}
