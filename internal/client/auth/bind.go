package auth

import (
	"context"
	"log/slog"

	"github.com/iudanet/gophgate/internal/client/api"
	"github.com/iudanet/gophgate/internal/models"
	"github.com/iudanet/gophgate/internal/validation"
	pkgapi "github.com/iudanet/gophgate/pkg/api"
)

// BindPhone привязка телефона после OAuth входа
type BindPhone struct {
	gateway Gateway
	session Session
	flow
}

// NewBindPhone создает контроллер привязки телефона
func NewBindPhone(gateway Gateway, session Session, logger *slog.Logger) *BindPhone {
	c := &BindPhone{gateway: gateway, session: session}
	c.logger = orDiscard(logger)
	return c
}

// Bind привязывает телефон к текущему аккаунту. Bearer токен берется из сессии.
// При успехе профиль в сессии обновляется, а NeedBindPhone сбрасывается.
func (c *BindPhone) Bind(ctx context.Context, phone, code string) Result[models.UserProfile] {
	c.begin()

	token := c.session.Token()
	if token == "" {
		c.finish(MsgNotLoggedIn)
		return Failure[models.UserProfile](MsgNotLoggedIn)
	}

	profile, err := c.gateway.BindPhone(ctx, token, pkgapi.BindPhoneRequest{Phone: phone, Code: code})
	if err == nil && profile == nil {
		err = &api.RemoteError{Kind: api.KindTransport, Err: errEmptyProfile}
	}
	if err != nil {
		msg := c.fail(err, MsgBindFailed)
		c.logger.WarnContext(ctx, "phone binding failed",
			slog.String("phone", validation.MaskPhone(phone)),
			slog.Any("error", err))
		return Failure[models.UserProfile](msg)
	}

	if c.attached() {
		c.session.UpdateUser(profile.Patch())
		c.session.SetNeedBindPhone(false)
	}
	c.succeed()

	c.logger.InfoContext(ctx, "phone bound", slog.String("phone", validation.MaskPhone(phone)))
	return Success(*profile)
}
