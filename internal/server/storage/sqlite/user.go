package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/gophgate/internal/models"
	"github.com/iudanet/gophgate/internal/server/storage"
)

const userColumns = `id, email, phone, password_hash, full_name, nickname, avatar,
	oauth_openid, oauth_unionid, is_active, is_superuser, is_phone_verified,
	created_at, updated_at, last_login`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		nullString(user.Email),
		nullString(user.Phone),
		user.PasswordHash,
		user.FullName,
		user.Nickname,
		user.Avatar,
		nullString(user.OAuthOpenID),
		nullString(user.OAuthUnionID),
		user.IsActive,
		user.IsSuperuser,
		user.IsPhoneVerified,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLogin,
	)

	if err != nil {
		// Проверяем на duplicate phone/email/openid
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUserBy(ctx, "id", userID)
}

// GetUserByPhone retrieves user by phone number
func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.getUserBy(ctx, "phone", phone)
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "email", email)
}

// GetUserByOAuthOpenID retrieves user by provider openid
func (s *Storage) GetUserByOAuthOpenID(ctx context.Context, openID string) (*models.User, error) {
	return s.getUserBy(ctx, "oauth_openid", openID)
}

// GetUserByOAuthUnionID retrieves user by provider unionid
func (s *Storage) GetUserByOAuthUnionID(ctx context.Context, unionID string) (*models.User, error) {
	return s.getUserBy(ctx, "oauth_unionid", unionID)
}

// getUserBy column подставляется только из констант выше
func (s *Storage) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	if value == "" {
		return nil, storage.ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? LIMIT 1`

	user := &models.User{}
	var (
		email, phone, openID, unionID sql.NullString
		lastLogin                     sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&email,
		&phone,
		&user.PasswordHash,
		&user.FullName,
		&user.Nickname,
		&user.Avatar,
		&openID,
		&unionID,
		&user.IsActive,
		&user.IsSuperuser,
		&user.IsPhoneVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Email = email.String
	user.Phone = phone.String
	user.OAuthOpenID = openID.String
	user.OAuthUnionID = unionID.String
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// UpdateUser updates user information
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = ?, phone = ?, password_hash = ?, full_name = ?, nickname = ?, avatar = ?,
			oauth_openid = ?, oauth_unionid = ?, is_active = ?, is_superuser = ?,
			is_phone_verified = ?, updated_at = ?, last_login = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		nullString(user.Email),
		nullString(user.Phone),
		user.PasswordHash,
		user.FullName,
		user.Nickname,
		user.Avatar,
		nullString(user.OAuthOpenID),
		nullString(user.OAuthUnionID),
		user.IsActive,
		user.IsSuperuser,
		user.IsPhoneVerified,
		user.UpdatedAt,
		user.LastLogin,
		user.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// DeleteUser deletes user by ID
func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, lastLogin, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// nullString пустая строка хранится как NULL, чтобы UNIQUE не конфликтовал
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
