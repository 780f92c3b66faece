package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iudanet/gophgate/internal/models"
	"github.com/iudanet/gophgate/internal/validation"
	pkgapi "github.com/iudanet/gophgate/pkg/api"
)

var errEmptyAccessToken = errors.New("server returned an empty access token")

// PhoneLogin вход по телефону и SMS коду
type PhoneLogin struct {
	gateway Gateway
	session Session
	flow
}

// NewPhoneLogin создает контроллер входа по телефону
func NewPhoneLogin(gateway Gateway, session Session, logger *slog.Logger) *PhoneLogin {
	c := &PhoneLogin{gateway: gateway, session: session}
	c.logger = orDiscard(logger)
	return c
}

// Login обменивает телефон и код на токен и открывает сессию без профиля
func (c *PhoneLogin) Login(ctx context.Context, phone, code string) Result[Done] {
	c.begin()

	resp, err := c.gateway.PhoneLogin(ctx, pkgapi.PhoneLoginRequest{Phone: phone, Code: code})
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = errEmptyAccessToken
	}
	if err != nil {
		msg := c.fail(err, MsgLoginFailed)
		c.logger.WarnContext(ctx, "phone login failed",
			slog.String("phone", validation.MaskPhone(phone)),
			slog.Any("error", err))
		return Failure[Done](msg)
	}

	if msg, ok := c.commit(ctx, c.session, resp.AccessToken, nil, false); !ok {
		return Failure[Done](msg)
	}

	c.logger.InfoContext(ctx, "phone login succeeded", slog.String("phone", validation.MaskPhone(phone)))
	return Success(Done{})
}

// PhoneRegister регистрация по телефону и SMS коду
type PhoneRegister struct {
	gateway Gateway
	session Session
	flow
}

// NewPhoneRegister создает контроллер регистрации
func NewPhoneRegister(gateway Gateway, session Session, logger *slog.Logger) *PhoneRegister {
	c := &PhoneRegister{gateway: gateway, session: session}
	c.logger = orDiscard(logger)
	return c
}

// Register создает аккаунт и сразу открывает сессию. nickname необязателен.
func (c *PhoneRegister) Register(ctx context.Context, phone, code, nickname string) Result[Done] {
	c.begin()

	req := pkgapi.PhoneRegisterRequest{Phone: phone, Code: code, Nickname: nickname}
	resp, err := c.gateway.PhoneRegister(ctx, req)
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = errEmptyAccessToken
	}
	if err != nil {
		msg := c.fail(err, MsgRegisterFailed)
		c.logger.WarnContext(ctx, "phone registration failed",
			slog.String("phone", validation.MaskPhone(phone)),
			slog.Any("error", err))
		return Failure[Done](msg)
	}

	if msg, ok := c.commit(ctx, c.session, resp.AccessToken, nil, false); !ok {
		return Failure[Done](msg)
	}

	c.logger.InfoContext(ctx, "phone registration succeeded", slog.String("phone", validation.MaskPhone(phone)))
	return Success(Done{})
}

// commit записывает сессию, если представление еще присоединено, и завершает вызов
func (f *flow) commit(ctx context.Context, session Session, token string, user *models.UserProfile, needBind bool) (string, bool) {
	if !f.attached() {
		f.succeed()
		return "", true
	}

	if err := session.Login(ctx, token, user, needBind); err != nil {
		f.finish(MsgSaveFailed)
		f.logger.ErrorContext(ctx, "failed to save session", slog.Any("error", err))
		return MsgSaveFailed, false
	}

	f.succeed()
	return "", true
}
