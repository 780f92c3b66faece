package storage

import (
	"context"
	"time"

	"github.com/iudanet/gophgate/internal/models"
)

//go:generate moq -out user_mock.go . UserStorage

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if phone, email or OAuth openid is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByPhone retrieves user by phone number
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)

	// GetUserByEmail retrieves user by email (legacy login)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByOAuthOpenID retrieves user by provider openid
	GetUserByOAuthOpenID(ctx context.Context, openID string) (*models.User, error)

	// GetUserByOAuthUnionID retrieves user by provider unionid
	GetUserByOAuthUnionID(ctx context.Context, unionID string) (*models.User, error)

	// UpdateUser updates user information
	// Returns ErrUserNotFound if user doesn't exist, ErrUserAlreadyExists on a unique conflict
	UpdateUser(ctx context.Context, user *models.User) error

	// DeleteUser deletes user by ID
	// Returns ErrUserNotFound if user doesn't exist
	DeleteUser(ctx context.Context, userID string) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error
}
