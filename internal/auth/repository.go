package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned when the username or password does not match
// an active staff account.
var ErrInvalidCredentials = eris.New("invalid credentials")

// Repository defines persistence operations for staff users.
type Repository interface {
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, username, password string, staff bool) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
}

// GormRepository stores users with Gorm.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed user repository.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// GetByID returns the user or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"user_id": id}, err, "fetching user by id")
		return nil, eris.Wrapf(err, "fetching user by id: %d", id)
	}
	return &user, nil
}

// GetByUsername returns the user or nil when not found.
func (r *GormRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return nil, eris.New("username is required")
	}

	var user User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", trimmed).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"username": trimmed}, err, "fetching user by username")
		return nil, eris.Wrapf(err, "fetching user by username: %s", trimmed)
	}
	return &user, nil
}

// Create stores a new active user with a hashed password.
func (r *GormRepository) Create(ctx context.Context, username, password string, staff bool) (*User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return nil, eris.New("username is required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{Username: trimmed, PasswordHash: hash, IsStaff: staff, IsActive: true}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return nil, eris.Errorf("user %s already exists", trimmed)
		}
		r.logError(logrus.Fields{"username": trimmed}, err, "creating user")
		return nil, eris.Wrapf(err, "creating user: %s", trimmed)
	}
	return user, nil
}

// Authenticate checks the credentials of an active staff account and records the login time.
func (r *GormRepository) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CheckPassword(password) || !user.CanUseAdmin() {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(user).Update("last_login", now).Error; err != nil {
		r.logError(logrus.Fields{"user_id": user.ID}, err, "recording last login")
		return nil, eris.Wrap(err, "recording last login")
	}
	user.LastLogin = &now

	return user, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
