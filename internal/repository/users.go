package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/velora-app/auth-service/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when an insert collides with the unique
	// email or username index.
	ErrDuplicate = errors.New("email or username already exists")
)

// UserRepository is the gorm-backed user store. All queries run against the
// shared pool owned by main; nothing here opens or closes connections.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByIdentifier matches the identifier against email or username with a
// single query, the login lookup.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// Create inserts the user. A collision on the email or username index is
// reported as ErrDuplicate; there is no pre-insert existence check, so two
// concurrent signups cannot both win.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// LinkGoogle backfills the provider subject (and avatar, if not already set)
// on an existing account the first time it signs in with Google.
func (r *UserRepository) LinkGoogle(ctx context.Context, id uuid.UUID, googleID, avatar string) error {
	updates := map[string]interface{}{"google_id": googleID}
	if avatar != "" {
		updates["avatar"] = gorm.Expr("CASE WHEN avatar = '' OR avatar IS NULL THEN ? ELSE avatar END", avatar)
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("link google account: %w", err)
	}
	return nil
}
