package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that phone, email or OAuth identity is already taken
	ErrUserAlreadyExists = errors.New("user already exists")
)
