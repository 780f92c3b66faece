package models

import "time"

// User представляет пользователя в хранилище сервера авторизации
type User struct {
	CreatedAt       time.Time  `json:"created_at"`           // время создания
	UpdatedAt       time.Time  `json:"updated_at"`           // время последнего обновления
	LastLogin       *time.Time `json:"last_login,omitempty"` // время последнего входа
	ID              string     `json:"id"`                   // UUID пользователя
	Email           string     `json:"email,omitempty"`      // email для legacy входа по паролю
	Phone           string     `json:"phone,omitempty"`      // уникальный номер телефона
	PasswordHash    string     `json:"-"`                    // bcrypt хеш пароля (только legacy вход)
	FullName        string     `json:"full_name,omitempty"`
	Nickname        string     `json:"nickname,omitempty"`
	Avatar          string     `json:"avatar,omitempty"`
	OAuthOpenID     string     `json:"oauth_openid,omitempty"`
	OAuthUnionID    string     `json:"oauth_unionid,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsSuperuser     bool       `json:"is_superuser"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
}

// Profile returns the public view of the user
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:              u.ID,
		Email:           u.Email,
		Phone:           u.Phone,
		FullName:        u.FullName,
		Nickname:        u.Nickname,
		Avatar:          u.Avatar,
		OAuthOpenID:     u.OAuthOpenID,
		OAuthUnionID:    u.OAuthUnionID,
		IsActive:        u.IsActive,
		IsSuperuser:     u.IsSuperuser,
		IsPhoneVerified: u.IsPhoneVerified,
	}
}

// IsPhoneBound reports whether the user has a verified phone attached
func (u *User) IsPhoneBound() bool {
	return u.Phone != "" && u.IsPhoneVerified
}
