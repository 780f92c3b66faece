package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gophgate/internal/models"
	pkgapi "github.com/iudanet/gophgate/pkg/api"
)

const (
	// DefaultTimeout таймаут одного запроса к серверу авторизации
	DefaultTimeout = 30 * time.Second

	headerRequestID = "X-Request-ID"
)

// Client представляет HTTP клиент сервера авторизации
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет http.Client (используется в тестах)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger задает логгер клиента
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient создает новый API клиент
// baseURL включает префикс API, например http://localhost:8080/api/v1
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendSMSCode запрашивает отправку SMS кода на телефон
func (c *Client) SendSMSCode(ctx context.Context, phone string) (*pkgapi.MessageResponse, error) {
	var resp pkgapi.MessageResponse
	req := pkgapi.SendSMSRequest{Phone: phone}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/sms/send", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PhoneLogin выполняет вход по телефону и SMS коду
func (c *Client) PhoneLogin(ctx context.Context, req pkgapi.PhoneLoginRequest) (*pkgapi.TokenResponse, error) {
	var resp pkgapi.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/phone/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PhoneRegister регистрирует пользователя по телефону и SMS коду
func (c *Client) PhoneRegister(ctx context.Context, req pkgapi.PhoneRegisterRequest) (*pkgapi.TokenResponse, error) {
	var resp pkgapi.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/phone/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OAuthLogin обменивает OAuth код на токен и профиль
func (c *Client) OAuthLogin(ctx context.Context, code string) (*pkgapi.OAuthLoginResponse, error) {
	var resp pkgapi.OAuthLoginResponse
	req := pkgapi.OAuthLoginRequest{Code: code}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/oauth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BindPhone привязывает телефон к текущему аккаунту и возвращает обновленный профиль
func (c *Client) BindPhone(ctx context.Context, token string, req pkgapi.BindPhoneRequest) (*models.UserProfile, error) {
	var resp models.UserProfile
	if err := c.doJSON(ctx, http.MethodPost, "/auth/bind-phone", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser получает профиль владельца токена
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	var resp models.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &RemoteError{Kind: KindTransport, Err: fmt.Errorf("profile response has no id")}
	}
	return &resp, nil
}

// CredentialLogin выполняет legacy вход по email и паролю (form-encoded)
func (c *Client) CredentialLogin(ctx context.Context, email, password string) (*pkgapi.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var resp pkgapi.TokenResponse
	err := c.do(ctx, http.MethodPost, "/login/access-token", "",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*pkgapi.HealthResponse, error) {
	var resp pkgapi.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON выполняет запрос с JSON телом
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return &RemoteError{Kind: KindTransport, Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		bodyReader = bytes.NewReader(jsonData)
		contentType = "application/json"
	}

	return c.do(ctx, method, path, token, contentType, bodyReader, result)
}

// do выполняет HTTP запрос и приводит любую ошибку к *RemoteError
func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &RemoteError{Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "auth request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return &RemoteError{Kind: KindTransport, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Kind: KindTransport, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.DebugContext(ctx, "auth request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &RemoteError{Kind: KindTransport, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}
