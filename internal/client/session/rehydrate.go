package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Rehydrate builds the session state for a persisted token by fetching the
// owner's profile. It does not touch any store; CheckAuth publishes the result.
func Rehydrate(ctx context.Context, token string, profiles ProfileFetcher) (State, error) {
	if token == "" {
		return State{}, ErrEmptyToken
	}

	user, err := profiles.CurrentUser(ctx, token)
	if err != nil {
		return State{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if user == nil {
		return State{}, ErrNoProfile
	}

	st := State{
		Token:         token,
		User:          cloneProfile(user),
		NeedBindPhone: user.NeedsPhoneBinding(),
	}
	st.normalize()

	return st, nil
}

// TokenExpiry читает claim exp из токена без проверки подписи.
// Клиент не знает секрета сервера, поэтому значение только информационное
// (вывод в status); действительность токена решает сервер.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
