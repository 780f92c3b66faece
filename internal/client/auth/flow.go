package auth

import (
	"io"
	"log/slog"
	"sync"

	"github.com/iudanet/gophgate/internal/client/api"
)

// Сообщения по умолчанию, когда сервер не прислал detail
const (
	MsgSendFailed     = "failed to send code, please try again later"
	MsgSendCooldown   = "please wait before requesting a new code"
	MsgLoginFailed    = "login failed, please try again later"
	MsgRegisterFailed = "registration failed, please try again later"
	MsgOAuthFailed    = "OAuth login failed, please try again later"
	MsgBindFailed     = "binding failed, please try again later"
	MsgSaveFailed     = "failed to save session"
	MsgNotLoggedIn    = "not logged in"
)

// flow общее состояние контроллера: счетчик запросов в полете, последняя ошибка
// и признак отсоединения представления.
type flow struct {
	logger   *slog.Logger
	err      string
	inFlight int
	mu       sync.Mutex
	detached bool
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

// IsLoading true, пока хотя бы один вызов не завершился
func (f *flow) IsLoading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight > 0
}

// Err последнее сообщение об ошибке ("" после успеха)
func (f *flow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Detach отсоединяет контроллер от представления: результаты вызовов,
// которые еще в полете, больше не записываются в сессию.
func (f *flow) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = true
}

func (f *flow) begin() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight++
	f.err = ""
}

func (f *flow) succeed() {
	f.finish("")
}

// fail завершает вызов с сообщением: detail сервера или fallback
func (f *flow) fail(err error, fallback string) string {
	msg := api.Normalize(err).Message(fallback)
	f.finish(msg)
	return msg
}

func (f *flow) finish(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.err = msg
}

func (f *flow) attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.detached
}
