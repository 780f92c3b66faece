package auth

import (
	"context"
	"log/slog"

	"github.com/iudanet/gophgate/internal/models"
)

// OAuthOutcome результат OAuth входа
type OAuthOutcome struct {
	User          models.UserProfile
	NeedBindPhone bool // аккаунт должен привязать телефон перед доступом к /home
}

// OAuthLogin вход через OAuth провайдера по коду из callback
type OAuthLogin struct {
	gateway Gateway
	session Session
	flow
}

// NewOAuthLogin создает контроллер OAuth входа
func NewOAuthLogin(gateway Gateway, session Session, logger *slog.Logger) *OAuthLogin {
	c := &OAuthLogin{gateway: gateway, session: session}
	c.logger = orDiscard(logger)
	return c
}

// Login обменивает код на токен и профиль.
// NeedBindPhone выставляется по флагу сервера is_phone_bound.
func (c *OAuthLogin) Login(ctx context.Context, code string) Result[OAuthOutcome] {
	c.begin()

	resp, err := c.gateway.OAuthLogin(ctx, code)
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = errEmptyAccessToken
	}
	if err != nil {
		msg := c.fail(err, MsgOAuthFailed)
		c.logger.WarnContext(ctx, "oauth login failed", slog.Any("error", err))
		return Failure[OAuthOutcome](msg)
	}

	outcome := OAuthOutcome{User: resp.User, NeedBindPhone: !resp.IsPhoneBound}
	user := resp.User
	if msg, ok := c.commit(ctx, c.session, resp.AccessToken, &user, outcome.NeedBindPhone); !ok {
		return Failure[OAuthOutcome](msg)
	}

	c.logger.InfoContext(ctx, "oauth login succeeded",
		slog.String("user_id", resp.User.ID),
		slog.Bool("need_bind_phone", outcome.NeedBindPhone))
	return Success(outcome)
}
