// Package oauth обменивает код авторизации на идентичность пользователя у провайдера.
package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidCode провайдер отверг код
var ErrInvalidCode = errors.New("invalid OAuth code")

// Identity данные пользователя у провайдера
type Identity struct {
	OpenID   string // идентификатор в рамках приложения
	UnionID  string // идентификатор в рамках всех приложений провайдера, может быть пустым
	Nickname string
	Avatar   string
}

//go:generate moq -out provider_mock.go . Provider

// Provider обменивает код из redirect на Identity
type Provider interface {
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// StaticProvider детерминированный провайдер для локальной разработки:
// один и тот же код всегда дает одну и ту же идентичность.
// Коды с префиксом "invalid" отвергаются.
type StaticProvider struct {
	appID string
}

// NewStaticProvider создает провайдер для разработки
func NewStaticProvider(appID string) *StaticProvider {
	if appID == "" {
		appID = "dev"
	}
	return &StaticProvider{appID: appID}
}

// Exchange implements Provider
func (p *StaticProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if code == "" || strings.HasPrefix(code, "invalid") {
		return nil, ErrInvalidCode
	}

	unionID := digest("union", code)
	return &Identity{
		OpenID:   p.appID + "_" + digest(p.appID, code),
		UnionID:  unionID,
		Nickname: "user_" + unionID[:6],
	}, nil
}

func digest(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return hex.EncodeToString(sum[:8])
}
