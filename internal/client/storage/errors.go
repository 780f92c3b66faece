package storage

import "errors"

// Common client storage errors
var (
	// ErrTokenNotFound indicates that no session token is persisted
	ErrTokenNotFound = errors.New("session token not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
