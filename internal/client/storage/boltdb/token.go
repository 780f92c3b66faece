package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophgate/internal/client/storage"
)

// tokenKey единственный ключ долговременной сессии
var tokenKey = []byte("access_token")

// Compile-time check that Storage implements TokenStorage
var _ storage.TokenStorage = (*Storage)(nil)

// SaveToken stores the bearer token
func (s *Storage) SaveToken(ctx context.Context, token string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		if err := bucket.Put(tokenKey, []byte(token)); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		return nil
	})
}

// GetToken retrieves the persisted bearer token
func (s *Storage) GetToken(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var token string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data := bucket.Get(tokenKey)
		if len(data) == 0 {
			return storage.ErrTokenNotFound
		}

		// Копируем: данные bbolt валидны только внутри транзакции
		token = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

// DeleteToken removes the persisted token (logout)
func (s *Storage) DeleteToken(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		// Проверяем существование данных
		if bucket.Get(tokenKey) == nil {
			return storage.ErrTokenNotFound
		}

		if err := bucket.Delete(tokenKey); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}

		return nil
	})
}
