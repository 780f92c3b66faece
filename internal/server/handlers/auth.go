package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gophgate/internal/crypto"
	"github.com/iudanet/gophgate/internal/models"
	"github.com/iudanet/gophgate/internal/server/oauth"
	"github.com/iudanet/gophgate/internal/server/sms"
	"github.com/iudanet/gophgate/internal/server/storage"
	"github.com/iudanet/gophgate/internal/validation"
	"github.com/iudanet/gophgate/pkg/api"
)

//go:generate moq -out codes_mock.go . CodeStore

// CodeStore выдает и проверяет одноразовые SMS коды
type CodeStore interface {
	Issue(ctx context.Context, phone string) (string, error)
	RetryAfter(ctx context.Context, phone string) time.Duration
	Release(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	codes       CodeStore
	sender      sms.Sender
	provider    oauth.Provider
	now         func() time.Time
	jwtConfig   JWTConfig
	codeTTL     time.Duration
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(
	logger *slog.Logger,
	userStorage storage.UserStorage,
	codes CodeStore,
	sender sms.Sender,
	provider oauth.Provider,
	jwtConfig JWTConfig,
	codeTTL time.Duration,
) *AuthHandler {
	if codeTTL <= 0 {
		codeTTL = sms.DefaultCodeTTL
	}
	return &AuthHandler{
		logger:      logger,
		userStorage: userStorage,
		codes:       codes,
		sender:      sender,
		provider:    provider,
		jwtConfig:   jwtConfig,
		codeTTL:     codeTTL,
		now:         time.Now,
	}
}

// SendSMS обрабатывает POST /api/v1/auth/sms/send
func (h *AuthHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SendSMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode sms request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidatePhone(req.Phone); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	masked := validation.MaskPhone(req.Phone)

	code, err := h.codes.Issue(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, sms.ErrResendTooSoon) {
			wait := int(math.Ceil(h.codes.RetryAfter(ctx, req.Phone).Seconds()))
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(wait))
			}
			h.logger.InfoContext(ctx, "sms resend refused", slog.String("phone", masked))
			h.sendError(w, fmt.Sprintf("please wait %d seconds before requesting a new code", wait), http.StatusTooManyRequests)
			return
		}
		h.logger.ErrorContext(ctx, "failed to issue sms code", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	message := sms.CodeMessage(code, int(h.codeTTL.Minutes()))
	if err := h.sender.Send(ctx, req.Phone, message); err != nil {
		// Код не доставлен: снимаем блокировку, чтобы можно было повторить сразу
		if relErr := h.codes.Release(ctx, req.Phone); relErr != nil {
			h.logger.WarnContext(ctx, "failed to release sms code", slog.Any("error", relErr))
		}
		h.logger.ErrorContext(ctx, "failed to send sms",
			slog.String("phone", masked),
			slog.Any("error", err))
		h.sendError(w, "failed to send SMS", http.StatusBadGateway)
		return
	}

	h.logger.InfoContext(ctx, "sms code sent", slog.String("phone", masked))

	h.sendJSON(w, api.MessageResponse{Message: "code sent"}, http.StatusOK)
}

// PhoneLogin обрабатывает POST /api/v1/auth/phone/login
// Неизвестный номер регистрируется автоматически.
func (h *AuthHandler) PhoneLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PhoneLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode phone login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validatePhoneAndCode(req.Phone, req.Code); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.verifyCode(w, r, req.Phone, req.Code) {
		return
	}

	user, err := h.userStorage.GetUserByPhone(ctx, req.Phone)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		user, err = h.createPhoneUser(ctx, req.Phone, "")
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to auto-register user", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !user.IsActive {
		h.logger.WarnContext(ctx, "login refused: user is disabled", slog.String("user_id", user.ID))
		h.sendError(w, "user is disabled", http.StatusBadRequest)
		return
	}

	// Код пришел на этот номер, значит номер подтвержден
	if !user.IsPhoneVerified {
		user.IsPhoneVerified = true
		user.UpdatedAt = h.now()
		if err := h.userStorage.UpdateUser(ctx, user); err != nil {
			h.logger.WarnContext(ctx, "failed to mark phone verified", slog.Any("error", err))
		}
	}

	h.issueToken(w, r, user)
}

// PhoneRegister обрабатывает POST /api/v1/auth/phone/register
func (h *AuthHandler) PhoneRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PhoneRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validatePhoneAndCode(req.Phone, req.Code); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateNickname(req.Nickname); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Проверяем занятость до погашения кода
	if _, err := h.userStorage.GetUserByPhone(ctx, req.Phone); err == nil {
		h.sendError(w, "phone already registered", http.StatusConflict)
		return
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !h.verifyCode(w, r, req.Phone, req.Code) {
		return
	}

	user, err := h.createPhoneUser(ctx, req.Phone, req.Nickname)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.sendError(w, "phone already registered", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully", slog.String("user_id", user.ID))

	h.issueToken(w, r, user)
}

// OAuthLogin обрабатывает POST /api/v1/auth/oauth/login
// Пользователь ищется по unionid, затем по openid; новый создается без телефона.
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.OAuthLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode oauth request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Code == "" {
		h.sendError(w, "code is required", http.StatusBadRequest)
		return
	}

	identity, err := h.provider.Exchange(ctx, req.Code)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidCode) {
			h.logger.WarnContext(ctx, "oauth code rejected", slog.Any("error", err))
			h.sendError(w, "invalid OAuth code", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "oauth exchange failed", slog.Any("error", err))
		h.sendError(w, "OAuth provider unavailable", http.StatusBadGateway)
		return
	}

	user, err := h.findOAuthUser(ctx, identity)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		user, err = h.createOAuthUser(ctx, identity)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to create oauth user", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	default:
		if refreshIdentity(user, identity) {
			user.UpdatedAt = h.now()
			if err := h.userStorage.UpdateUser(ctx, user); err != nil {
				h.logger.WarnContext(ctx, "failed to refresh oauth identity", slog.Any("error", err))
			}
		}
	}

	if !user.IsActive {
		h.logger.WarnContext(ctx, "oauth login refused: user is disabled", slog.String("user_id", user.ID))
		h.sendError(w, "user is disabled", http.StatusBadRequest)
		return
	}

	token, ok := h.signToken(w, r, user)
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "oauth login",
		slog.String("user_id", user.ID),
		slog.Bool("phone_bound", user.IsPhoneBound()))

	h.sendJSON(w, api.OAuthLoginResponse{
		AccessToken:  token,
		TokenType:    api.TokenTypeBearer,
		User:         user.Profile(),
		IsPhoneBound: user.IsPhoneBound(),
	}, http.StatusOK)
}

// BindPhone обрабатывает POST /api/v1/auth/bind-phone (требует токен)
func (h *AuthHandler) BindPhone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req api.BindPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode bind request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validatePhoneAndCode(req.Phone, req.Code); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, err := h.userStorage.GetUserByPhone(ctx, req.Phone)
	switch {
	case err == nil && owner.ID != user.ID:
		h.logger.WarnContext(ctx, "phone already bound to another account", slog.String("user_id", user.ID))
		h.sendError(w, "phone already bound to another account", http.StatusConflict)
		return
	case err != nil && !errors.Is(err, storage.ErrUserNotFound):
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !h.verifyCode(w, r, req.Phone, req.Code) {
		return
	}

	user.Phone = req.Phone
	user.IsPhoneVerified = true
	user.UpdatedAt = h.now()

	if err := h.userStorage.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.sendError(w, "phone already bound to another account", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to bind phone", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "phone bound",
		slog.String("user_id", user.ID),
		slog.String("phone", validation.MaskPhone(req.Phone)))

	h.sendJSON(w, user.Profile(), http.StatusOK)
}

// Me обрабатывает GET /api/v1/auth/me (требует токен)
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.sendJSON(w, user.Profile(), http.StatusOK)
}

// CredentialLogin обрабатывает POST /api/v1/login/access-token
// Legacy вход: form-encoded username (email) и password.
func (h *AuthHandler) CredentialLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.sendError(w, "invalid form body", http.StatusBadRequest)
		return
	}

	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	if err := validation.ValidateEmail(email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if password == "" {
		h.sendError(w, "password cannot be empty", http.StatusBadRequest)
		return
	}

	user, err := h.userStorage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found")
			h.sendError(w, "incorrect email or password", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if user.PasswordHash == "" || crypto.VerifyPassword(password, user.PasswordHash) != nil {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("user_id", user.ID))
		h.sendError(w, "incorrect email or password", http.StatusBadRequest)
		return
	}

	if !user.IsActive {
		h.sendError(w, "user is disabled", http.StatusBadRequest)
		return
	}

	h.issueToken(w, r, user)
}

// verifyCode гасит код; при ошибке уже отправил ответ
func (h *AuthHandler) verifyCode(w http.ResponseWriter, r *http.Request, phone, code string) bool {
	ctx := r.Context()

	if err := h.codes.Verify(ctx, phone, code); err != nil {
		if errors.Is(err, sms.ErrInvalidCode) {
			h.logger.WarnContext(ctx, "invalid sms code", slog.String("phone", validation.MaskPhone(phone)))
			h.sendError(w, "invalid or expired code", http.StatusBadRequest)
			return false
		}
		h.logger.ErrorContext(ctx, "failed to verify sms code", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return false
	}

	return true
}

// currentUser загружает пользователя из контекста AuthMiddleware
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	ctx := r.Context()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		h.sendError(w, "not authenticated", http.StatusUnauthorized)
		return nil, false
	}

	user, err := h.userStorage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Токен валиден, но аккаунта больше нет
			h.sendError(w, "user not found", http.StatusUnauthorized)
			return nil, false
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}

	if !user.IsActive {
		h.sendError(w, "user is disabled", http.StatusBadRequest)
		return nil, false
	}

	return user, true
}

// issueToken подписывает токен и отправляет TokenResponse
func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, ok := h.signToken(w, r, user)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in successfully", slog.String("user_id", user.ID))

	h.sendJSON(w, api.TokenResponse{
		AccessToken: token,
		TokenType:   api.TokenTypeBearer,
	}, http.StatusOK)
}

func (h *AuthHandler) signToken(w http.ResponseWriter, r *http.Request, user *models.User) (string, bool) {
	ctx := r.Context()
	now := h.now()

	token, _, err := GenerateAccessToken(h.jwtConfig, user.ID, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return "", false
	}

	// Не критичная ошибка, логируем но не прерываем
	if err := h.userStorage.UpdateLastLogin(ctx, user.ID, now); err != nil {
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	return token, true
}

func (h *AuthHandler) createPhoneUser(ctx context.Context, phone, nickname string) (*models.User, error) {
	if nickname == "" {
		nickname = "user_" + phone[len(phone)-4:]
	}

	now := h.now()
	user := &models.User{
		ID:              uuid.New().String(),
		Phone:           phone,
		Nickname:        nickname,
		IsActive:        true,
		IsPhoneVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (h *AuthHandler) findOAuthUser(ctx context.Context, identity *oauth.Identity) (*models.User, error) {
	if identity.UnionID != "" {
		user, err := h.userStorage.GetUserByOAuthUnionID(ctx, identity.UnionID)
		if !errors.Is(err, storage.ErrUserNotFound) {
			return user, err
		}
	}
	return h.userStorage.GetUserByOAuthOpenID(ctx, identity.OpenID)
}

func (h *AuthHandler) createOAuthUser(ctx context.Context, identity *oauth.Identity) (*models.User, error) {
	now := h.now()
	user := &models.User{
		ID:           uuid.New().String(),
		Nickname:     identity.Nickname,
		Avatar:       identity.Avatar,
		OAuthOpenID:  identity.OpenID,
		OAuthUnionID: identity.UnionID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// refreshIdentity переносит данные провайдера в запись, true если что-то изменилось.
// Ник, заданный пользователем, не перезаписывается.
func refreshIdentity(user *models.User, identity *oauth.Identity) bool {
	changed := false
	if identity.OpenID != "" && user.OAuthOpenID != identity.OpenID {
		user.OAuthOpenID = identity.OpenID
		changed = true
	}
	if identity.UnionID != "" && user.OAuthUnionID != identity.UnionID {
		user.OAuthUnionID = identity.UnionID
		changed = true
	}
	if identity.Avatar != "" && user.Avatar != identity.Avatar {
		user.Avatar = identity.Avatar
		changed = true
	}
	if user.Nickname == "" && identity.Nickname != "" {
		user.Nickname = identity.Nickname
		changed = true
	}
	return changed
}

func validatePhoneAndCode(phone, code string) error {
	if err := validation.ValidatePhone(phone); err != nil {
		return err
	}
	return validation.ValidateCode(code)
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	writeJSON(h.logger, w, data, statusCode)
}

// sendError отправляет JSON ответ с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, detail string, statusCode int) {
	writeJSON(h.logger, w, api.ErrorResponse{Detail: detail}, statusCode)
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}
