// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatortrader_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for user data operations.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	IsRegistered(ctx context.Context, email string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user record into the database.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// TranslateError drops the constraint name, so ask the table which column collided.
			return r.describeConflict(ctx, user)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormRepository) describeConflict(ctx context.Context, user *User) error {
	var count int64
	r.db.WithContext(ctx).Model(&User{}).Where("LOWER(username) = LOWER(?)", user.Username).Count(&count)
	if count > 0 {
		return common.ErrConflict.WithDetails("That username is already taken.")
	}
	return common.ErrConflict.WithDetails("User with this email already exists.")
}

func (r *gormRepository) first(ctx context.Context, notFound string, query string, args ...interface{}) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where(query, args...).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(notFound)
		}
		return nil, err
	}
	return &userModel, nil
}

// FindByEmail retrieves a user by their email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "User not found with this email.", "email = ?", normalizeEmail(email))
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.first(ctx, "User not found.", "id = ?", id)
}

// FindByIDs returns the users that exist among ids, in no particular order.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	var users []User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

// FindByFirebaseUID retrieves a user by their Firebase UID.
func (r *gormRepository) FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	return r.first(ctx, "User not found with this Firebase UID.", "firebase_uid = ?", firebaseUID)
}

// FindByUsername matches case-insensitively.
func (r *gormRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.first(ctx, "User not found with this username.", "LOWER(username) = LOWER(?)", strings.TrimSpace(username))
}

// UpdateFields applies a partial update.
func (r *gormRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			if _, ok := fields["username"]; ok {
				return common.ErrConflict.WithDetails("That username is already taken.")
			}
			return common.ErrConflict.WithDetails("User already exists.")
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User not found.")
	}
	return nil
}

// IsRegistered reports whether email appears on the registered_users roster.
func (r *gormRepository) IsRegistered(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RegisteredUser{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check registered users: %w", err)
	}
	return count > 0, nil
}
