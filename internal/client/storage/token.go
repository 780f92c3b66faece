package storage

import (
	"context"
)

//go:generate moq -out token_mock.go . TokenStorage

// TokenStorage defines the durable layer of the client session.
// Only the bearer token survives restarts; the profile and derived flags are
// always rebuilt from a fresh profile fetch.
type TokenStorage interface {
	// SaveToken stores the bearer token, replacing any previous one
	SaveToken(ctx context.Context, token string) error

	// GetToken retrieves the persisted bearer token
	// Returns ErrTokenNotFound if no token exists
	GetToken(ctx context.Context) (string, error)

	// DeleteToken removes the persisted token
	// Returns ErrTokenNotFound if no token exists
	DeleteToken(ctx context.Context) error
}
