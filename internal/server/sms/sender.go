package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/iudanet/gophgate/internal/validation"
)

//go:generate moq -out sender_mock.go . Sender

// Sender доставляет текст сообщения на телефон
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// TwilioSender отправляет SMS через Twilio
type TwilioSender struct {
	client      *twilio.RestClient
	logger      *slog.Logger
	fromNumber  string
	countryCode string // префикс E.164, например "+86"
}

// NewTwilioSender создает отправителя Twilio
func NewTwilioSender(accountSID, authToken, fromNumber, countryCode string, logger *slog.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:      client,
		logger:      logger,
		fromNumber:  fromNumber,
		countryCode: countryCode,
	}
}

// Send implements Sender
func (t *TwilioSender) Send(ctx context.Context, phone, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.countryCode + phone)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	attrs := []any{slog.String("phone", validation.MaskPhone(phone))}
	if resp != nil && resp.Sid != nil {
		attrs = append(attrs, slog.String("sid", *resp.Sid))
	}
	t.logger.InfoContext(ctx, "sms sent via twilio", attrs...)

	return nil
}

// LogSender пишет сообщение в лог вместо отправки (локальная разработка)
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender создает отправителя в лог
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (l *LogSender) Send(ctx context.Context, phone, message string) error {
	l.logger.InfoContext(ctx, "[MOCK SMS]",
		slog.String("phone", validation.MaskPhone(phone)),
		slog.String("message", message))
	return nil
}

// NewSender выбирает Twilio, если задан номер отправителя, иначе LogSender
func NewSender(accountSID, authToken, fromNumber, countryCode string, logger *slog.Logger) Sender {
	if fromNumber == "" || accountSID == "" {
		return NewLogSender(logger)
	}
	return NewTwilioSender(accountSID, authToken, fromNumber, countryCode, logger)
}

// CodeMessage текст сообщения с кодом
func CodeMessage(code string, ttlMinutes int) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, ttlMinutes)
}
