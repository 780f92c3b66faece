package api

import "github.com/iudanet/gophgate/internal/models"

// TokenTypeBearer тип токена, который выдает сервер
const TokenTypeBearer = "bearer"

// SendSMSRequest представляет запрос на отправку SMS кода
type SendSMSRequest struct {
	Phone string `json:"phone"` // номер телефона (11 цифр)
}

// PhoneLoginRequest представляет запрос на вход по телефону и коду
type PhoneLoginRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"` // код из SMS
}

// PhoneRegisterRequest представляет запрос на регистрацию по телефону
type PhoneRegisterRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Nickname string `json:"nickname,omitempty"` // необязательный ник
}

// OAuthLoginRequest представляет обмен OAuth кода авторизации на токен
type OAuthLoginRequest struct {
	Code string `json:"code"` // authorization code от провайдера
}

// BindPhoneRequest представляет запрос на привязку телефона к текущему аккаунту
type BindPhoneRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	TokenType   string `json:"token_type"`   // всегда "bearer"
}

// OAuthLoginResponse представляет ответ на OAuth вход
type OAuthLoginResponse struct {
	AccessToken  string             `json:"access_token"`
	TokenType    string             `json:"token_type"`
	User         models.UserProfile `json:"user"`
	IsPhoneBound bool               `json:"is_phone_bound"` // привязан ли подтвержденный телефон
}

// MessageResponse представляет простой ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Detail string `json:"detail,omitempty"` // человекочитаемое описание ошибки
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
