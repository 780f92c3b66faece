package auth

import (
	"context"
	"errors"
	"log/slog"
)

var errEmptyProfile = errors.New("server returned an empty profile")

// CredentialLogin legacy вход по email и паролю
type CredentialLogin struct {
	gateway Gateway
	session Session
	flow
}

// NewCredentialLogin создает контроллер входа по паролю
func NewCredentialLogin(gateway Gateway, session Session, logger *slog.Logger) *CredentialLogin {
	c := &CredentialLogin{gateway: gateway, session: session}
	c.logger = orDiscard(logger)
	return c
}

// Login выполняет вход и открывает сессию без профиля
func (c *CredentialLogin) Login(ctx context.Context, email, password string) Result[Done] {
	c.begin()

	resp, err := c.gateway.CredentialLogin(ctx, email, password)
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = errEmptyAccessToken
	}
	if err != nil {
		msg := c.fail(err, MsgLoginFailed)
		c.logger.WarnContext(ctx, "credential login failed", slog.Any("error", err))
		return Failure[Done](msg)
	}

	if msg, ok := c.commit(ctx, c.session, resp.AccessToken, nil, false); !ok {
		return Failure[Done](msg)
	}

	c.logger.InfoContext(ctx, "credential login succeeded")
	return Success(Done{})
}
