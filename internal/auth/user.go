package auth

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a back-office account.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex:idx_users_username;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	IsStaff      bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`
	LastLogin    *time.Time
	CreatedAt    time.Time
}

func (User) TableName() string {
	return "users"
}

// CanUseAdmin reports whether the account may open admin pages.
func (u *User) CanUseAdmin() bool {
	return u != nil && u.IsActive && u.IsStaff
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", eris.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "hashing password")
	}
	return string(hash), nil
}

// CheckPassword compares password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Migrate applies the users schema.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "auth.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying users schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("users schema migration failed")
		}
		return eris.Wrap(err, "auto migrating users schema")
	}

	return nil
}
