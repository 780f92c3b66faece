package session

import "errors"

var (
	// ErrEmptyToken возвращается при попытке начать сессию без токена
	ErrEmptyToken = errors.New("session token is empty")
	// ErrNoProfile сервер вернул пустой профиль
	ErrNoProfile = errors.New("profile is empty")
)
