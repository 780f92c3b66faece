package auth

import (
	"context"
	"log/slog"

	"github.com/iudanet/gophgate/internal/client/countdown"
	"github.com/iudanet/gophgate/internal/validation"
)

// SMSSender запрашивает SMS код и ведет таймер повторной отправки.
// Один экземпляр на форму ввода телефона.
type SMSSender struct {
	gateway Gateway
	timer   *countdown.Timer
	flow
	resend int
}

// NewSMSSender создает контроллер отправки кода.
// resend <= 0 означает countdown.DefaultResend секунд.
func NewSMSSender(gateway Gateway, timer *countdown.Timer, resend int, logger *slog.Logger) *SMSSender {
	if resend <= 0 {
		resend = countdown.DefaultResend
	}
	if timer == nil {
		timer = countdown.New()
	}

	s := &SMSSender{gateway: gateway, timer: timer, resend: resend}
	s.logger = orDiscard(logger)
	return s
}

// Timer таймер повторной отправки (для отображения остатка)
func (s *SMSSender) Timer() *countdown.Timer {
	return s.timer
}

// Send запрашивает код. Пока таймер не истек, запрос не отправляется.
func (s *SMSSender) Send(ctx context.Context, phone string) Result[Done] {
	if !s.timer.CanSend() {
		s.mu.Lock()
		s.err = MsgSendCooldown
		s.mu.Unlock()
		return Failure[Done](MsgSendCooldown)
	}

	s.begin()
	s.timer.SetSending(true)
	defer s.timer.SetSending(false)

	if _, err := s.gateway.SendSMSCode(ctx, phone); err != nil {
		msg := s.fail(err, MsgSendFailed)
		s.logger.WarnContext(ctx, "failed to send sms code",
			slog.String("phone", validation.MaskPhone(phone)),
			slog.Any("error", err))
		return Failure[Done](msg)
	}

	s.timer.Start(s.resend)
	s.succeed()

	s.logger.InfoContext(ctx, "sms code sent", slog.String("phone", validation.MaskPhone(phone)))
	return Success(Done{})
}

// Close останавливает таймер при уходе с формы
func (s *SMSSender) Close() {
	s.Detach()
	s.timer.Close()
}
