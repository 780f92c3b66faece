package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind классифицирует ошибку обращения к серверу авторизации
type Kind int

const (
	// KindRemoteRejection сервер ответил ошибкой (4xx/5xx), возможно с detail
	KindRemoteRejection Kind = iota + 1
	// KindTransport сеть, таймаут или нечитаемый ответ
	KindTransport
	// KindSessionInvalid токен отклонен (401)
	KindSessionInvalid
)

// String returns a short name of the kind for logs
func (k Kind) String() string {
	switch k {
	case KindRemoteRejection:
		return "remote_rejection"
	case KindTransport:
		return "transport"
	case KindSessionInvalid:
		return "session_invalid"
	default:
		return "unknown"
	}
}

// RemoteError is the normalized error of every gateway call.
// Flow controllers never look at transport-specific shapes, only at this type.
type RemoteError struct {
	Err    error  // исходная ошибка (для транспорта)
	Detail string // сообщение сервера для пользователя, может быть пустым
	Kind   Kind
	Status int // HTTP статус, 0 для транспортных ошибок
}

// Error implements error
func (e *RemoteError) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("request failed with status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	default:
		return "request failed"
	}
}

// Unwrap returns the underlying transport error
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Message returns the text shown to the user: the server detail when present,
// otherwise the channel-specific fallback.
func (e *RemoteError) Message(fallback string) string {
	if e == nil || e.Detail == "" {
		return fallback
	}
	return e.Detail
}

// Normalize converts any error returned by the gateway into a RemoteError.
// Errors that did not come from a server response are classified as transport.
func Normalize(err error) *RemoteError {
	if err == nil {
		return nil
	}

	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}

	return &RemoteError{Kind: KindTransport, Err: err}
}

// IsUnauthorized reports whether err means the session token was rejected
func IsUnauthorized(err error) bool {
	remote := Normalize(err)
	return remote != nil && remote.Kind == KindSessionInvalid
}

// newStatusError строит RemoteError из неуспешного HTTP ответа
func newStatusError(status int, body []byte) *RemoteError {
	kind := KindRemoteRejection
	if status == http.StatusUnauthorized {
		kind = KindSessionInvalid
	}

	return &RemoteError{
		Kind:   kind,
		Status: status,
		Detail: extractDetail(body),
	}
}

// extractDetail достает поле detail из тела ошибки.
// detail бывает строкой или списком ошибок валидации вида [{"msg": "..."}].
func extractDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, item := range items {
			if item.Msg != "" {
				return item.Msg
			}
		}
	}

	return ""
}
