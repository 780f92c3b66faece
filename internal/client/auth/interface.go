package auth

import (
	"context"

	"github.com/iudanet/gophgate/internal/models"
	pkgapi "github.com/iudanet/gophgate/pkg/api"
)

//go:generate moq -out gateway_mock.go . Gateway Session

// Gateway defines the remote auth service operations used by the login flows.
// api.Client is the HTTP implementation; every error it returns is a *api.RemoteError.
type Gateway interface {
	// SendSMSCode запрашивает отправку SMS кода
	SendSMSCode(ctx context.Context, phone string) (*pkgapi.MessageResponse, error)

	// PhoneLogin обменивает телефон и код на токен
	PhoneLogin(ctx context.Context, req pkgapi.PhoneLoginRequest) (*pkgapi.TokenResponse, error)

	// PhoneRegister регистрирует аккаунт и возвращает токен
	PhoneRegister(ctx context.Context, req pkgapi.PhoneRegisterRequest) (*pkgapi.TokenResponse, error)

	// OAuthLogin обменивает OAuth код на токен, профиль и флаг привязки телефона
	OAuthLogin(ctx context.Context, code string) (*pkgapi.OAuthLoginResponse, error)

	// BindPhone привязывает телефон к аккаунту владельца токена
	BindPhone(ctx context.Context, token string, req pkgapi.BindPhoneRequest) (*models.UserProfile, error)

	// CurrentUser возвращает профиль владельца токена
	CurrentUser(ctx context.Context, token string) (*models.UserProfile, error)

	// CredentialLogin legacy вход по email и паролю
	CredentialLogin(ctx context.Context, email, password string) (*pkgapi.TokenResponse, error)
}

// Session is the part of session.Store the flows write into.
type Session interface {
	Login(ctx context.Context, token string, user *models.UserProfile, needBindPhone bool) error
	Token() string
	UpdateUser(patch models.ProfilePatch)
	SetNeedBindPhone(need bool)
}
